package buffer_pool_manager

import (
	"container/list"
	"sync"
)

// keeps track of resident frames that hold no pins, i.e. the candidates for eviction.
type Replacer interface {

	// victim removes and returns the frame that should be evicted next.
	// returns INVALID_FRAME_ID and false when no frame is evictable.
	victim() (FrameID, bool)

	// pin removes a frame from the replacer once its pin count rises above zero.
	// does nothing if the frame is absent.
	pin(frameId FrameID)

	// unpin adds a frame to the replacer, marking it as a candidate for eviction.
	// does nothing if the frame is already present, so a redundant unpin never refreshes recency.
	unpin(frameId FrameID)

	// size returns the current number of frames managed by the replacer.
	size() int
}

type LRUReplacer struct {

	// synchronizes access to the list.
	mutex *sync.Mutex

	// keeps track of the order in which frames became evictable.
	// front = most recently unpinned, back = the victim.
	list *list.List

	// used to remove frames from the middle of the list.
	frameMap map[FrameID]*list.Element
}

func NewLRUReplacer() *LRUReplacer {

	return &LRUReplacer{
		list:     list.New(),
		frameMap: make(map[FrameID]*list.Element),
		mutex:    &sync.Mutex{},
	}
}

// removes and returns the ID of the frame at the back of the list,
// which is the frame whose last unpin is globally the oldest.
func (replacer *LRUReplacer) victim() (FrameID, bool) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	frameElement := replacer.list.Back()

	if frameElement == nil {
		return INVALID_FRAME_ID, false
	}

	frameId := replacer.list.Remove(frameElement).(FrameID)

	delete(replacer.frameMap, frameId)
	return frameId, true
}

// removes the frame from the list once its pin count > 0.
func (replacer *LRUReplacer) pin(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	frameElement, exists := replacer.frameMap[frameId]

	if !exists {
		return
	}

	replacer.list.Remove(frameElement)
	delete(replacer.frameMap, frameId)
}

// inserts the frame ID at the front of the list once its pin count drops to zero.
// recency is recorded only here: a frame already in the list keeps its position.
func (replacer *LRUReplacer) unpin(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	if _, exists := replacer.frameMap[frameId]; exists {
		return
	}

	frameElement := replacer.list.PushFront(frameId)
	replacer.frameMap[frameId] = frameElement
}

// returns the number of frames currently managed by the replacer.
func (replacer *LRUReplacer) size() int {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	return len(replacer.frameMap)
}
