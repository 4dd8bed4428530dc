package buffer_pool_manager

// ReadGuard provides shared read access to a page resident in the buffer pool.
// The page stays pinned, and its frame latched in shared mode, until Done is called.
type ReadGuard struct {

	// active prevents a guard from being used after its Done function has been called.
	active bool
	frame  *Frame
	pool   *BufferPoolManager
}

// NewReadGuard fetches and pins the page, then takes the frame latch in shared mode.
// All guards for the same page share one RW latch.
func (pool *BufferPoolManager) NewReadGuard(pageId PageID) (*ReadGuard, error) {

	frame, err := pool.FetchPage(pageId)

	if err != nil {
		return nil, err
	}

	frame.mutex.RLock()

	return &ReadGuard{
		active: true,
		frame:  frame,
		pool:   pool,
	}, nil
}

// PageId returns the ID of the guarded page.
func (guard *ReadGuard) PageId() PageID {

	if !guard.active {
		return PageID{Fd: -1, PageNo: INVALID_PAGE_NO}
	}

	return guard.frame.pageId
}

// Data returns the page contents. The slice must not be written through a read guard,
// and must not be retained after Done.
func (guard *ReadGuard) Data() []byte {

	if !guard.active {
		return nil
	}

	return guard.frame.data
}

// Done releases the shared latch and drops the guard's pin.
// A guard becomes inactive and cannot be reused once this returns true.
func (guard *ReadGuard) Done() bool {

	if !guard.active {
		return false
	}

	pageId := guard.frame.pageId

	guard.frame.mutex.RUnlock()
	guard.pool.UnpinPage(pageId, false)

	guard.frame = nil
	guard.pool = nil
	guard.active = false

	return true
}
