package buffer_pool_manager

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ReadGuardTestSuite struct {
	suite.Suite
	pool   *BufferPoolManager
	pageId PageID
}

func (rs *ReadGuardTestSuite) SetupTest() {

	disk := NewOSBufferedDiskManager(zap.NewNop())

	fd, err := disk.OpenFile(filepath.Join(rs.T().TempDir(), "guard_test.db"))

	rs.Require().NoError(err)

	rs.pool = NewBufferPoolManager(3, NewLRUReplacer(), disk, zap.NewNop(), nil)

	rs.pageId = PageID{Fd: fd}

	frame, err := rs.pool.NewPage(&rs.pageId)

	rs.Require().NoError(err)

	copy(frame.Data(), bytes.Repeat([]byte{0x7E}, PAGE_SIZE))

	rs.Require().True(rs.pool.UnpinPage(rs.pageId, true))
}

func (rs *ReadGuardTestSuite) TestReadThroughGuard() {

	guard, err := rs.pool.NewReadGuard(rs.pageId)

	rs.Require().NoError(err)

	rs.Assert().Equal(rs.pageId, guard.PageId())
	rs.Assert().Equal(bytes.Repeat([]byte{0x7E}, PAGE_SIZE), guard.Data())

	rs.Assert().True(guard.Done())

	frameId := rs.pool.pageTable[rs.pageId]
	rs.Assert().Zero(rs.pool.frames[frameId].pinCount)
}

func (rs *ReadGuardTestSuite) TestSharedGuards() {

	first, err := rs.pool.NewReadGuard(rs.pageId)

	rs.Require().NoError(err)

	second, err := rs.pool.NewReadGuard(rs.pageId)

	rs.Require().NoError(err)

	frameId := rs.pool.pageTable[rs.pageId]

	rs.Assert().Equal(2, rs.pool.frames[frameId].pinCount)

	rs.Assert().True(first.Done())
	rs.Assert().True(second.Done())

	rs.Assert().Zero(rs.pool.frames[frameId].pinCount)
}

func (rs *ReadGuardTestSuite) TestGuardInactiveAfterDone() {

	guard, err := rs.pool.NewReadGuard(rs.pageId)

	rs.Require().NoError(err)
	rs.Require().True(guard.Done())

	rs.Assert().False(guard.Done())
	rs.Assert().Nil(guard.Data())
}

func TestReadGuard(t *testing.T) {

	suite.Run(t, new(ReadGuardTestSuite))
}
