package buffer_pool_manager

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrNoVictim is returned when every frame in the pool is pinned.
var ErrNoVictim = errors.New("all frames are pinned")

// BufferPoolManager multiplexes pages from many files onto a fixed array of frames.
// It guarantees at most one resident copy of any page, never evicts a pinned frame,
// and writes dirty frames back to disk before their frame is repurposed.
type BufferPoolManager struct {

	// guards the frame array, page table, free list, and replacer membership.
	// held for the full duration of every public operation, including disk I/O.
	mutex *sync.Mutex

	poolSize int
	frames   []Frame

	// maps a page to the frame it occupies. A page has an entry iff it is resident.
	pageTable map[PageID]FrameID

	// frames holding no page. Drawn from the front, returned to the back.
	freeFrames []FrameID

	replacer Replacer
	disk     DiskManager

	logger  *zap.Logger
	metrics *poolMetrics
}

// NewBufferPoolManager creates a pool with a fixed number of frames, all initially free.
// Passing a nil registerer keeps the pool's metrics unexported.
func NewBufferPoolManager(poolSize int, replacer Replacer, disk DiskManager, logger *zap.Logger, registerer prometheus.Registerer) *BufferPoolManager {

	frames := make([]Frame, poolSize)
	freeFrames := make([]FrameID, 0, poolSize)

	for i := 0; i < poolSize; i++ {
		frames[i].data = make([]byte, PAGE_SIZE)
		frames[i].pageId = PageID{Fd: -1, PageNo: INVALID_PAGE_NO}
		freeFrames = append(freeFrames, FrameID(i))
	}

	logger.Info("created buffer pool", zap.Int("poolSize", poolSize))

	return &BufferPoolManager{
		mutex:      &sync.Mutex{},
		poolSize:   poolSize,
		frames:     frames,
		pageTable:  make(map[PageID]FrameID),
		freeFrames: freeFrames,
		replacer:   replacer,
		disk:       disk,
		logger:     logger,
		metrics:    newPoolMetrics(registerer),
	}
}

// FetchPage pins the page and returns its frame, reading it from disk if it is
// not resident. Returns ErrNoVictim when every frame is pinned; disk errors
// propagate unchanged. The frame stays resident until every caller unpins it.
func (pool *BufferPoolManager) FetchPage(pageId PageID) (*Frame, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if frameId, exists := pool.pageTable[pageId]; exists {

		frame := &pool.frames[frameId]

		pool.replacer.pin(frameId)

		if frame.pinCount == 0 {
			pool.metrics.pinnedFrames.Inc()
		}
		frame.pinCount++

		pool.metrics.hits.Inc()
		return frame, nil
	}

	frameId, fromFreeList, found := pool.findVictim()

	if !found {
		pool.logger.Debug("fetch failed, all frames pinned", zap.Int("fd", pageId.Fd), zap.Int64("pageNo", int64(pageId.PageNo)))
		return nil, ErrNoVictim
	}

	frame := &pool.frames[frameId]

	if err := pool.updatePage(frame, pageId, frameId); err != nil {
		pool.putBackVictim(frameId, fromFreeList)
		return nil, err
	}

	if err := pool.disk.ReadPage(pageId.Fd, pageId.PageNo, frame.data); err != nil {

		// the new mapping was already installed; retract it and free the frame.
		delete(pool.pageTable, pageId)
		frame.resetMemory()
		frame.pageId = PageID{Fd: -1, PageNo: INVALID_PAGE_NO}
		pool.freeFrames = append(pool.freeFrames, frameId)

		return nil, err
	}

	pool.replacer.pin(frameId)
	frame.pinCount = 1
	frame.dirty = false

	pool.metrics.misses.Inc()
	pool.metrics.pinnedFrames.Inc()

	return frame, nil
}

// UnpinPage drops one reference to the page. Returns false if the page is not
// resident or has no outstanding pins. The dirty flag only ever ORs in: a
// caller passing false never cleans a frame another caller dirtied.
func (pool *BufferPoolManager) UnpinPage(pageId PageID, dirty bool) bool {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable[pageId]

	if !exists {
		return false
	}

	frame := &pool.frames[frameId]

	if frame.pinCount <= 0 {
		return false
	}

	frame.pinCount--

	if frame.pinCount == 0 {
		pool.replacer.unpin(frameId)
		pool.metrics.pinnedFrames.Dec()
	}

	if dirty {
		frame.dirty = true
	}

	return true
}

// FlushPage writes the page to disk and clears its dirty flag, regardless of
// pin count. Returns false if the page is not resident. A failed write leaves
// the frame dirty so a retried flush can still succeed.
func (pool *BufferPoolManager) FlushPage(pageId PageID) (bool, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable[pageId]

	if !exists {
		return false, nil
	}

	frame := &pool.frames[frameId]

	if err := pool.disk.WritePage(pageId.Fd, pageId.PageNo, frame.data); err != nil {
		return false, err
	}

	frame.dirty = false
	pool.metrics.flushes.Inc()

	return true, nil
}

// NewPage allocates a fresh page in the file named by pageId.Fd, writes the
// assigned page number into pageId, and returns a pinned, zeroed frame for it.
// The caller initializes the contents and marks them dirty through UnpinPage.
func (pool *BufferPoolManager) NewPage(pageId *PageID) (*Frame, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, fromFreeList, found := pool.findVictim()

	if !found {
		pool.logger.Debug("new page failed, all frames pinned", zap.Int("fd", pageId.Fd))
		return nil, ErrNoVictim
	}

	pageNo, err := pool.disk.AllocatePage(pageId.Fd)

	if err != nil {
		pool.putBackVictim(frameId, fromFreeList)
		return nil, err
	}

	pageId.PageNo = pageNo

	frame := &pool.frames[frameId]

	if err := pool.updatePage(frame, *pageId, frameId); err != nil {
		pool.putBackVictim(frameId, fromFreeList)
		return nil, err
	}

	pool.replacer.pin(frameId)
	frame.pinCount = 1

	pool.metrics.pinnedFrames.Inc()

	return frame, nil
}

// DeletePage drops the page from the pool and returns its frame to the free
// list. Returns true if the page was not resident to begin with, false if it
// still holds pins. The contents are written back first, so a caller deleting
// a dirty page never loses the last version on disk. File-level deallocation
// is the caller's concern.
func (pool *BufferPoolManager) DeletePage(pageId PageID) (bool, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable[pageId]

	if !exists {
		return true, nil
	}

	frame := &pool.frames[frameId]

	if frame.pinCount != 0 {
		return false, nil
	}

	if err := pool.disk.WritePage(pageId.Fd, pageId.PageNo, frame.data); err != nil {
		return false, err
	}

	delete(pool.pageTable, pageId)

	// the frame is no longer resident, so it leaves the replacer as well.
	pool.replacer.pin(frameId)

	frame.resetMemory()
	frame.dirty = false
	frame.pinCount = 0
	frame.pageId.PageNo = INVALID_PAGE_NO

	pool.freeFrames = append(pool.freeFrames, frameId)

	return true, nil
}

// FlushAllPages writes every resident page of the given file to disk and
// clears the dirty flags. Pages of other files are untouched. The first write
// error is returned after the remaining pages have been attempted.
func (pool *BufferPoolManager) FlushAllPages(fd int) error {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	var firstErr error

	for i := 0; i < pool.poolSize; i++ {

		frame := &pool.frames[i]

		if frame.pageId.Fd != fd || frame.pageId.PageNo == INVALID_PAGE_NO {
			continue
		}

		if err := pool.disk.WritePage(frame.pageId.Fd, frame.pageId.PageNo, frame.data); err != nil {

			pool.logger.Error("failed to flush page", zap.Int("fd", fd), zap.Int64("pageNo", int64(frame.pageId.PageNo)), zap.Error(err))

			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		frame.dirty = false
		pool.metrics.flushes.Inc()
	}

	return firstErr
}

// Close writes every dirty resident frame back to disk. The pool is purely
// in-memory, so nothing else survives teardown.
func (pool *BufferPoolManager) Close() error {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	var firstErr error

	for i := 0; i < pool.poolSize; i++ {

		frame := &pool.frames[i]

		if frame.pageId.PageNo == INVALID_PAGE_NO || !frame.dirty {
			continue
		}

		if err := pool.disk.WritePage(frame.pageId.Fd, frame.pageId.PageNo, frame.data); err != nil {

			pool.logger.Error("failed to flush page on close", zap.Int("fd", frame.pageId.Fd), zap.Int64("pageNo", int64(frame.pageId.PageNo)), zap.Error(err))

			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		frame.dirty = false
	}

	return firstErr
}

// findVictim pops a frame off the free list, falling back to the replacer.
// Free frames are preferred because they need no write-back, so cold startup
// and post-deletion workloads avoid spurious I/O. The returned frame is off
// both the free list and the replacer.
func (pool *BufferPoolManager) findVictim() (frameId FrameID, fromFreeList bool, found bool) {

	if len(pool.freeFrames) > 0 {

		frameId = pool.freeFrames[0]
		pool.freeFrames = pool.freeFrames[1:]
		return frameId, true, true
	}

	if frameId, ok := pool.replacer.victim(); ok {
		return frameId, false, true
	}

	return INVALID_FRAME_ID, false, false
}

// putBackVictim undoes findVictim after a failure, so the frame is not leaked.
func (pool *BufferPoolManager) putBackVictim(frameId FrameID, fromFreeList bool) {

	if fromFreeList {
		pool.freeFrames = append(pool.freeFrames, frameId)
	} else {
		pool.replacer.unpin(frameId)
	}
}

// updatePage repurposes a frame just obtained from findVictim for a new page:
// it writes the old contents back if dirty, swaps the page table entries, and
// hands back a zeroed, clean, unpinned frame holding the new identity. This is
// the single chokepoint through which every frame identity change passes.
func (pool *BufferPoolManager) updatePage(frame *Frame, newPageId PageID, newFrameId FrameID) error {

	if frame.dirty {

		if err := pool.disk.WritePage(frame.pageId.Fd, frame.pageId.PageNo, frame.data); err != nil {
			// the frame keeps its dirty flag; the caller returns it to wherever it came from.
			return err
		}

		frame.dirty = false
		pool.metrics.dirtyWrites.Inc()
	}

	if frame.pageId.PageNo != INVALID_PAGE_NO {
		delete(pool.pageTable, frame.pageId)
		pool.metrics.evictions.Inc()

		pool.logger.Debug("evicting page",
			zap.Int("fd", frame.pageId.Fd),
			zap.Int64("pageNo", int64(frame.pageId.PageNo)),
			zap.Int("frameId", int(newFrameId)))
	}

	pool.pageTable[newPageId] = newFrameId

	frame.resetMemory()
	frame.pageId = newPageId
	frame.dirty = false
	frame.pinCount = 0

	return nil
}
