package buffer_pool_manager

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LRUReplacerTestSuite struct {
	suite.Suite
	replacer *LRUReplacer
}

func (rs *LRUReplacerTestSuite) SetupTest() {

	rs.replacer = NewLRUReplacer()

	// frame 5 unpinned first, frame 3 last.
	rs.replacer.unpin(5)
	rs.replacer.unpin(1)
	rs.replacer.unpin(4)
	rs.replacer.unpin(3)
}

func (rs *LRUReplacerTestSuite) TestUnpin() {

	rs.replacer.unpin(2)

	rs.Assert().Equal(5, rs.replacer.size())

	front := rs.replacer.list.Front()

	rs.Assert().Equal(FrameID(2), front.Value.(FrameID))
}

func (rs *LRUReplacerTestSuite) TestUnpinIsIdempotent() {

	// a redundant unpin must not refresh recency.
	var positions []FrameID

	rs.replacer.unpin(5)

	for e := rs.replacer.list.Front(); e != nil; e = e.Next() {
		positions = append(positions, e.Value.(FrameID))
	}

	rs.Assert().Equal([]FrameID{3, 4, 1, 5}, positions)
	rs.Assert().Equal(4, rs.replacer.size())
}

func (rs *LRUReplacerTestSuite) TestVictim() {

	victim, found := rs.replacer.victim()

	rs.Assert().True(found)
	rs.Assert().Equal(FrameID(5), victim)

	victim, found = rs.replacer.victim()

	rs.Assert().True(found)
	rs.Assert().Equal(FrameID(1), victim)

	rs.Assert().Equal(2, rs.replacer.size())
}

func (rs *LRUReplacerTestSuite) TestVictimWhenEmpty() {

	replacer := NewLRUReplacer()

	victim, found := replacer.victim()

	rs.Assert().False(found)
	rs.Assert().Equal(INVALID_FRAME_ID, victim)
}

func (rs *LRUReplacerTestSuite) TestPin() {

	rs.replacer.pin(1)

	_, exists := rs.replacer.frameMap[1]

	rs.Assert().False(exists)
	rs.Assert().Equal(3, rs.replacer.size())

	// pinning an absent frame is a no-op.
	rs.replacer.pin(9)

	rs.Assert().Equal(3, rs.replacer.size())
}

func (rs *LRUReplacerTestSuite) TestPinThenUnpinMovesToFront() {

	rs.replacer.pin(5)
	rs.replacer.unpin(5)

	front := rs.replacer.list.Front()

	rs.Assert().Equal(FrameID(5), front.Value.(FrameID))

	victim, found := rs.replacer.victim()

	rs.Assert().True(found)
	rs.Assert().Equal(FrameID(1), victim)
}

func TestLRUReplacer(t *testing.T) {

	suite.Run(t, new(LRUReplacerTestSuite))
}
