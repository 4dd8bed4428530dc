package buffer_pool_manager

import (
	"encoding/binary"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrUnknownFile     = errors.New("no open file with this descriptor")
	ErrIncompleteRead  = errors.New("incomplete read")
	ErrIncompleteWrite = errors.New("incomplete write")
)

// DiskManager is responsible for reading, writing, allocating and deallocating pages
// across the set of files it has opened. Pages are addressed as (fd, page number).
type DiskManager interface {

	// OpenFile opens (or creates) a data file and returns the descriptor used to address its pages.
	OpenFile(path string) (int, error)

	// CloseFile persists the file's allocation metadata and closes it.
	CloseFile(fd int) error

	// ReadPage reads exactly len(data) bytes of the given page into data.
	ReadPage(fd int, pageNo PageNo, data []byte) error

	// WritePage writes exactly len(data) bytes of data to the given page.
	WritePage(fd int, pageNo PageNo, data []byte) error

	// AllocatePage allocates a page in the file and returns its page number.
	// It reuses a deallocated page number if available, otherwise extends the file.
	// Never returns INVALID_PAGE_NO.
	AllocatePage(fd int) (PageNo, error)

	// DeallocatePage marks a page number as free, making it available for future allocation.
	DeallocatePage(fd int, pageNo PageNo) error

	// Sync flushes the file's contents to stable storage.
	Sync(fd int) error
}

// dataFile is one open file together with its in-memory allocation state.
// The allocation state is persisted to a sidecar metadata file on close,
// so data pages start at page number 0 and file offsets stay page-aligned.
type dataFile struct {
	file *os.File
	path string

	nextPageNo            PageNo
	deallocatedPageNoList []PageNo
}

// OSBufferedDiskManager reads and writes pages through the kernel page cache.
type OSBufferedDiskManager struct {
	mutex  *sync.Mutex
	files  map[int]*dataFile
	logger *zap.Logger
}

func NewOSBufferedDiskManager(logger *zap.Logger) *OSBufferedDiskManager {

	return &OSBufferedDiskManager{
		mutex:  &sync.Mutex{},
		files:  make(map[int]*dataFile),
		logger: logger,
	}
}

// OpenFile opens a data file, restoring its allocation metadata from the
// sidecar file if one exists, otherwise deriving it from the file size.
func (disk *OSBufferedDiskManager) OpenFile(path string) (int, error) {

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return -1, err
	}

	df, err := newDataFile(f, path)

	if err != nil {
		f.Close()
		return -1, err
	}

	fd := int(f.Fd())

	disk.mutex.Lock()
	disk.files[fd] = df
	disk.mutex.Unlock()

	disk.logger.Info("opened data file", zap.String("path", path), zap.Int("fd", fd), zap.Int64("pages", int64(df.nextPageNo)))

	return fd, nil
}

// CloseFile writes the serialized allocation metadata next to the data file, then closes it.
func (disk *OSBufferedDiskManager) CloseFile(fd int) error {

	disk.mutex.Lock()
	df, exists := disk.files[fd]
	delete(disk.files, fd)
	disk.mutex.Unlock()

	if !exists {
		return ErrUnknownFile
	}

	if err := df.writeMetadata(); err != nil {
		disk.logger.Error("failed to write allocation metadata", zap.String("path", df.path), zap.Error(err))
		return err
	}

	return df.file.Close()
}

// ReadPage reads exactly len(data) bytes of the page into data.
func (disk *OSBufferedDiskManager) ReadPage(fd int, pageNo PageNo, data []byte) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	// ReadAt calls the pread system call, which reads at the offset
	// without disturbing the file's seek position.
	n, err := df.file.ReadAt(data, int64(pageNo)*PAGE_SIZE)

	if err != nil {
		disk.logger.Error("failed to read page", zap.Int("fd", fd), zap.Int64("pageNo", int64(pageNo)), zap.Error(err))
		return err
	}

	if n != len(data) {
		return ErrIncompleteRead
	}
	return nil
}

// WritePage writes exactly len(data) bytes of data to the page.
func (disk *OSBufferedDiskManager) WritePage(fd int, pageNo PageNo, data []byte) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	n, err := df.file.WriteAt(data, int64(pageNo)*PAGE_SIZE)

	if err != nil {
		disk.logger.Error("failed to write page", zap.Int("fd", fd), zap.Int64("pageNo", int64(pageNo)), zap.Error(err))
		return err
	}

	if n != len(data) {
		return ErrIncompleteWrite
	}
	return nil
}

// AllocatePage reuses a deallocated page number if available,
// otherwise zero-extends the file by one page.
func (disk *OSBufferedDiskManager) AllocatePage(fd int) (PageNo, error) {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	df, exists := disk.files[fd]

	if !exists {
		return INVALID_PAGE_NO, ErrUnknownFile
	}

	if len(df.deallocatedPageNoList) > 0 {

		pageNo := df.deallocatedPageNoList[0]
		df.deallocatedPageNoList = df.deallocatedPageNoList[1:]
		return pageNo, nil
	}

	pageNo := df.nextPageNo

	// extend the file so that reads of the fresh page observe zeros.
	if err := df.file.Truncate(int64(pageNo+1) * PAGE_SIZE); err != nil {
		return INVALID_PAGE_NO, err
	}

	df.nextPageNo++
	return pageNo, nil
}

// DeallocatePage marks a page number as free and adds it to the free list,
// making it available for future allocation.
func (disk *OSBufferedDiskManager) DeallocatePage(fd int, pageNo PageNo) error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	df, exists := disk.files[fd]

	if !exists {
		return ErrUnknownFile
	}

	df.deallocatedPageNoList = append(df.deallocatedPageNoList, pageNo)
	return nil
}

// Sync flushes the file's contents to stable storage.
func (disk *OSBufferedDiskManager) Sync(fd int) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	return df.file.Sync()
}

func (disk *OSBufferedDiskManager) lookup(fd int) (*dataFile, error) {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	df, exists := disk.files[fd]

	if !exists {
		return nil, ErrUnknownFile
	}
	return df, nil
}

// ------------------------
// allocation metadata

func newDataFile(f *os.File, path string) (*dataFile, error) {

	df := &dataFile{
		file:                  f,
		path:                  path,
		deallocatedPageNoList: make([]PageNo, 0),
	}

	metadata, err := os.ReadFile(metadataPath(path))

	if err == nil {
		df.deserializeMetadata(metadata)
		return df, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// no sidecar: the next page number is derived from the file size.
	stats, err := f.Stat()

	if err != nil {
		return nil, err
	}

	df.nextPageNo = PageNo(stats.Size() / PAGE_SIZE)

	return df, nil
}

func metadataPath(path string) string {
	return path + ".meta"
}

func (df *dataFile) writeMetadata() error {
	return os.WriteFile(metadataPath(df.path), df.serializeMetadata(), 0644)
}

// serializeMetadata encodes the next page number and the list of deallocated
// page numbers so the allocation state survives a restart.
func (df *dataFile) serializeMetadata() []byte {

	data := make([]byte, 8*(2+len(df.deallocatedPageNoList)))

	pointer := 0
	binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(df.nextPageNo))
	pointer += 8

	binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(len(df.deallocatedPageNoList)))
	pointer += 8

	for _, pageNo := range df.deallocatedPageNoList {
		binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(pageNo))
		pointer += 8
	}
	return data
}

// deserializeMetadata restores the allocation state written by serializeMetadata.
func (df *dataFile) deserializeMetadata(data []byte) {

	pointer := 0
	df.nextPageNo = PageNo(binary.LittleEndian.Uint64(data[pointer : pointer+8]))
	pointer += 8

	deallocatedPageListSize := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	for i := 0; i < int(deallocatedPageListSize); i++ {
		df.deallocatedPageNoList = append(df.deallocatedPageNoList, PageNo(binary.LittleEndian.Uint64(data[pointer:pointer+8])))
		pointer += 8
	}
}
