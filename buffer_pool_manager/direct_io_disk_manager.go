package buffer_pool_manager

import (
	"os"
	"sync"

	"github.com/ncw/directio"
	"go.uber.org/zap"
)

// number of zeroed pages appended at once when a file runs out of allocated space.
const extensionBatchPages = 16

// DirectIODiskManager uses Direct I/O to move pages directly between process memory
// and the disk controller, bypassing the kernel page cache. This is useful because:
// 1. It prevents file data from being cached twice, once in the kernel page cache and once in the buffer pool.
// 2. It gives the buffer pool complete control over when data is flushed to disk.
type DirectIODiskManager struct {
	mutex  *sync.Mutex
	files  map[int]*dataFile
	logger *zap.Logger
}

func NewDirectIODiskManager(logger *zap.Logger) *DirectIODiskManager {

	return &DirectIODiskManager{
		mutex:  &sync.Mutex{},
		files:  make(map[int]*dataFile),
		logger: logger,
	}
}

// OpenFile opens a data file with the platform's direct I/O flag,
// restoring allocation metadata the same way the buffered manager does.
func (disk *DirectIODiskManager) OpenFile(path string) (int, error) {

	f, err := openFileDirectIO(path, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		disk.logger.Error("failed to open file in direct I/O mode", zap.String("path", path), zap.Error(err))
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

	disk.logger.Info("opened data file in direct I/O mode", zap.String("path", path), zap.Int("fd", fd))

	return fd, nil
}

// CloseFile writes the serialized allocation metadata next to the data file, then closes it.
func (disk *DirectIODiskManager) CloseFile(fd int) error {

	disk.mutex.Lock()
	df, exists := disk.files[fd]
	delete(disk.files, fd)
	disk.mutex.Unlock()

	if !exists {
		return ErrUnknownFile
	}

	if err := df.writeMetadata(); err != nil {
		return err
	}

	return df.file.Close()
}

// ReadPage reads the page through an aligned intermediate block,
// since O_DIRECT requires block-aligned buffers.
func (disk *DirectIODiskManager) ReadPage(fd int, pageNo PageNo, data []byte) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	block := directio.AlignedBlock(len(data))

	n, err := df.file.ReadAt(block, int64(pageNo)*PAGE_SIZE)

	if err != nil {
		disk.logger.Error("failed to read page", zap.Int("fd", fd), zap.Int64("pageNo", int64(pageNo)), zap.Error(err))
		return err
	}

	if n != len(data) {
		return ErrIncompleteRead
	}

	copy(data, block)
	return nil
}

// WritePage writes the page through an aligned intermediate block.
// The write reaches the disk controller before this returns.
func (disk *DirectIODiskManager) WritePage(fd int, pageNo PageNo, data []byte) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	block := directio.AlignedBlock(len(data))
	copy(block, data)

	n, err := df.file.WriteAt(block, int64(pageNo)*PAGE_SIZE)

	if err != nil {
		disk.logger.Error("failed to write page", zap.Int("fd", fd), zap.Int64("pageNo", int64(pageNo)), zap.Error(err))
		return err
	}

	if n != len(data) {
		return ErrIncompleteWrite
	}
	return nil
}

// AllocatePage reuses a deallocated page number if available. Otherwise it hands
// out the next page number, first extending the file with a batch of zeroed pages
// when that page lies at or past the end of the file, since extending one page at
// a time defeats the point of bypassing the kernel cache.
func (disk *DirectIODiskManager) AllocatePage(fd int) (PageNo, error) {

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

	stats, err := df.file.Stat()

	if err != nil {
		return INVALID_PAGE_NO, err
	}

	if int64(df.nextPageNo)*PAGE_SIZE >= stats.Size() {

		block := directio.AlignedBlock(PAGE_SIZE * extensionBatchPages)

		if _, err := df.file.WriteAt(block, stats.Size()); err != nil {
			disk.logger.Error("failed to extend file", zap.Int("fd", fd), zap.Error(err))
			return INVALID_PAGE_NO, err
		}
	}

	pageNo := df.nextPageNo
	df.nextPageNo++
	return pageNo, nil
}

// DeallocatePage marks a page number as free, making it available for future allocation.
func (disk *DirectIODiskManager) DeallocatePage(fd int, pageNo PageNo) error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	df, exists := disk.files[fd]

	if !exists {
		return ErrUnknownFile
	}

	df.deallocatedPageNoList = append(df.deallocatedPageNoList, pageNo)
	return nil
}

// Sync flushes the file's metadata to stable storage. Page data already
// bypasses the kernel cache, so only metadata is outstanding.
func (disk *DirectIODiskManager) Sync(fd int) error {

	df, err := disk.lookup(fd)

	if err != nil {
		return err
	}

	return df.file.Sync()
}

func (disk *DirectIODiskManager) lookup(fd int) (*dataFile, error) {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	df, exists := disk.files[fd]

	if !exists {
		return nil, ErrUnknownFile
	}
	return df, nil
}
