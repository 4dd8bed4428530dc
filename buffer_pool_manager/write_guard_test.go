package buffer_pool_manager

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type WriteGuardTestSuite struct {
	suite.Suite
	pool *BufferPoolManager
	fd   int
}

func (ws *WriteGuardTestSuite) SetupTest() {

	disk := NewOSBufferedDiskManager(zap.NewNop())

	fd, err := disk.OpenFile(filepath.Join(ws.T().TempDir(), "guard_test.db"))

	ws.Require().NoError(err)
	ws.fd = fd

	ws.pool = NewBufferPoolManager(3, NewLRUReplacer(), disk, zap.NewNop(), nil)
}

func (ws *WriteGuardTestSuite) TestWriteThroughGuard() {

	pageId := PageID{Fd: ws.fd}

	guard, err := ws.pool.NewPageWriteGuard(&pageId)

	ws.Require().NoError(err)

	copy(guard.Data(), bytes.Repeat([]byte{0x42}, PAGE_SIZE))

	ws.Assert().True(guard.MarkDirty())
	ws.Assert().True(guard.Done())

	frameId := ws.pool.pageTable[pageId]

	ws.Assert().Zero(ws.pool.frames[frameId].pinCount)
	ws.Assert().True(ws.pool.frames[frameId].dirty)
}

func (ws *WriteGuardTestSuite) TestGuardInactiveAfterDone() {

	pageId := PageID{Fd: ws.fd}

	guard, err := ws.pool.NewPageWriteGuard(&pageId)

	ws.Require().NoError(err)
	ws.Require().True(guard.Done())

	ws.Assert().False(guard.Done())
	ws.Assert().False(guard.MarkDirty())
	ws.Assert().Nil(guard.Data())
	ws.Assert().Equal(INVALID_PAGE_NO, guard.PageId().PageNo)
}

func (ws *WriteGuardTestSuite) TestDeletePageThroughGuard() {

	pageId := PageID{Fd: ws.fd}

	guard, err := ws.pool.NewPageWriteGuard(&pageId)

	ws.Require().NoError(err)

	deleted, err := guard.DeletePage()

	ws.Require().NoError(err)
	ws.Assert().True(deleted)

	_, resident := ws.pool.pageTable[pageId]
	ws.Assert().False(resident)

	ws.Assert().False(guard.Done())
}

func (ws *WriteGuardTestSuite) TestDeletePageFailsWithSecondPin() {

	pageId := PageID{Fd: ws.fd}

	guard, err := ws.pool.NewPageWriteGuard(&pageId)

	ws.Require().NoError(err)

	// a second pin outside the guard keeps the page alive.
	_, err = ws.pool.FetchPage(pageId)

	ws.Require().NoError(err)

	deleted, err := guard.DeletePage()

	ws.Require().NoError(err)
	ws.Assert().False(deleted)

	_, resident := ws.pool.pageTable[pageId]
	ws.Assert().True(resident)

	ws.Assert().True(ws.pool.UnpinPage(pageId, false))
}

func TestWriteGuard(t *testing.T) {

	suite.Run(t, new(WriteGuardTestSuite))
}
