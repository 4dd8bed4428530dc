package buffer_pool_manager

// WriteGuard provides exclusive write access to a page resident in the buffer pool.
// The page stays pinned, and its frame latched exclusively, until Done or DeletePage.
type WriteGuard struct {

	// active prevents a guard from being used after its Done/DeletePage function has been called.
	active bool
	dirty  bool
	frame  *Frame
	pool   *BufferPoolManager
}

// NewWriteGuard fetches and pins the page, then takes the frame latch exclusively.
// All guards for the same page share one RW latch.
func (pool *BufferPoolManager) NewWriteGuard(pageId PageID) (*WriteGuard, error) {

	frame, err := pool.FetchPage(pageId)

	if err != nil {
		return nil, err
	}

	frame.mutex.Lock()

	return &WriteGuard{
		active: true,
		frame:  frame,
		pool:   pool,
	}, nil
}

// NewPageWriteGuard allocates a fresh page in the file named by pageId.Fd and
// returns a write guard over its zeroed frame, writing the assigned page
// number into pageId.
func (pool *BufferPoolManager) NewPageWriteGuard(pageId *PageID) (*WriteGuard, error) {

	frame, err := pool.NewPage(pageId)

	if err != nil {
		return nil, err
	}

	frame.mutex.Lock()

	return &WriteGuard{
		active: true,
		frame:  frame,
		pool:   pool,
	}, nil
}

// PageId returns the ID of the guarded page.
func (guard *WriteGuard) PageId() PageID {

	if !guard.active {
		return PageID{Fd: -1, PageNo: INVALID_PAGE_NO}
	}

	return guard.frame.pageId
}

// Data returns the page contents for modification.
// Callers that write through it must also call MarkDirty.
func (guard *WriteGuard) Data() []byte {

	if !guard.active {
		return nil
	}

	return guard.frame.data
}

// MarkDirty records that the guard modified the page, so Done's unpin
// carries the dirty flag into the frame.
func (guard *WriteGuard) MarkDirty() bool {

	if !guard.active {
		return false
	}

	guard.dirty = true
	return true
}

// Done releases the exclusive latch and drops the guard's pin, dirtying the
// frame if MarkDirty was called. A guard becomes inactive and cannot be
// reused once this returns true.
func (guard *WriteGuard) Done() bool {

	if !guard.active {
		return false
	}

	pageId := guard.frame.pageId

	guard.frame.mutex.Unlock()
	guard.pool.UnpinPage(pageId, guard.dirty)

	guard.frame = nil
	guard.pool = nil
	guard.active = false

	return true
}

// DeletePage surrenders the guard and deletes the page from the pool.
// Returns false if another caller still holds a pin on the page; the guard is
// spent either way.
func (guard *WriteGuard) DeletePage() (bool, error) {

	if !guard.active {
		return false, nil
	}

	pageId := guard.frame.pageId

	guard.frame.mutex.Unlock()
	guard.pool.UnpinPage(pageId, guard.dirty)

	deleted, err := guard.pool.DeletePage(pageId)

	guard.frame = nil
	guard.pool = nil
	guard.active = false

	return deleted, err
}
