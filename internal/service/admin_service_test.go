package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linxi/internal/model"
	"linxi/internal/repository"
)

type fakeReportStore struct {
	report      *model.Report
	transitions [][2]string
	updateErr   error
	listResp    []*model.Report
}

func (f *fakeReportStore) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	if f.report == nil || f.report.ID != id {
		return nil, repository.ErrReportNotFound
	}
	return f.report, nil
}

func (f *fakeReportStore) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.transitions = append(f.transitions, [2]string{fromStatus, toStatus})
	return nil
}

func (f *fakeReportStore) List(ctx context.Context, limit, offset int) ([]*model.Report, int64, error) {
	return f.listResp, int64(len(f.listResp)), nil
}

type fakePostStore struct {
	posts       map[int64]*model.Post
	softDeleted []int64
}

func (f *fakePostStore) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return post, nil
}

func (f *fakePostStore) SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error {
	f.softDeleted = append(f.softDeleted, id)
	return nil
}

type fakeStatusOverrider struct {
	overrides map[int64]string
}

func (f *fakeStatusOverrider) Override(ctx context.Context, userID int64, status string) error {
	if f.overrides == nil {
		f.overrides = make(map[int64]string)
	}
	f.overrides[userID] = status
	return nil
}

func newTestAdminService(t *testing.T, report *model.Report) (*AdminService, sqlmock.Sqlmock, *fakeReportStore, *fakePostStore, *fakeUserStore, *fakeAuditStore, *fakeOutboxStore, *fakeStatusOverrider) {
	t.Helper()

	db, mock := newTestDB(t)
	reports := &fakeReportStore{report: report}
	posts := &fakePostStore{posts: map[int64]*model.Post{10: {ID: 10}}}
	users := newFakeUserStore(&model.User{ID: 9, Status: model.UserStatusNormal})
	audits := &fakeAuditStore{}
	outbox := &fakeOutboxStore{}
	status := &fakeStatusOverrider{}

	s := &AdminService{
		db:      db,
		cfg:     newTestConfig(),
		reports: reports,
		posts:   posts,
		users:   users,
		audits:  audits,
		outbox:  outbox,
		status:  status,
	}

	return s, mock, reports, posts, users, audits, outbox, status
}

func TestProcessReportAcceptUser(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetUser, TargetID: 9, Status: model.ReportStatusPending}
	s, mock, reports, posts, users, audits, outbox, status := newTestAdminService(t, report)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.ProcessReport(context.Background(), 100, 1, true, "多次辱骂")
	require.NoError(t, err)

	// PENDING -> ACCEPTED
	assert.Equal(t, [][2]string{{model.ReportStatusPending, model.ReportStatusAccepted}}, reports.transitions)

	// 用户被封禁，动态不受影响
	assert.Equal(t, model.UserStatusBanned, users.statusSets[9])
	assert.Empty(t, posts.softDeleted)

	// 审计记录管理员和处理结果
	require.Len(t, audits.entries, 1)
	assert.Equal(t, model.AuditActionReportAccepted, audits.entries[0].Action)
	assert.Equal(t, int64(100), audits.entries[0].AdminID)
	assert.Equal(t, "多次辱骂", audits.entries[0].Details)

	// 审核结果事件进发件箱
	require.Len(t, outbox.messages, 1)
	assert.Equal(t, s.cfg.Kafka.Topic.ModerationResult, outbox.messages[0].Topic)

	// 提交之后缓存被覆盖成 BANNED
	assert.Equal(t, model.UserStatusBanned, status.overrides[9])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessReportAcceptPost(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetPost, TargetID: 10, Status: model.ReportStatusPending}
	s, mock, _, posts, users, _, _, status := newTestAdminService(t, report)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.ProcessReport(context.Background(), 100, 1, true, "")
	require.NoError(t, err)

	// 动态软删除，不涉及用户状态和缓存
	assert.Equal(t, []int64{10}, posts.softDeleted)
	assert.Empty(t, users.statusSets)
	assert.Empty(t, status.overrides)
}

func TestProcessReportReject(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetUser, TargetID: 9, Status: model.ReportStatusPending}
	s, mock, reports, _, users, audits, _, status := newTestAdminService(t, report)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.ProcessReport(context.Background(), 100, 1, false, "")
	require.NoError(t, err)

	// 驳回只流转状态和记审计，不做任何处置
	assert.Equal(t, [][2]string{{model.ReportStatusPending, model.ReportStatusRejected}}, reports.transitions)
	require.Len(t, audits.entries, 1)
	assert.Equal(t, model.AuditActionReportRejected, audits.entries[0].Action)
	assert.Empty(t, users.statusSets)
	assert.Empty(t, status.overrides)
}

func TestProcessReportAlreadyProcessed(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetUser, TargetID: 9, Status: model.ReportStatusAccepted}
	s, mock, reports, _, _, audits, _, _ := newTestAdminService(t, report)

	err := s.ProcessReport(context.Background(), 100, 1, true, "")
	assert.ErrorIs(t, err, ErrReportProcessed)

	assert.Empty(t, reports.transitions)
	assert.Empty(t, audits.entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessReportConcurrentLoser(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetUser, TargetID: 9, Status: model.ReportStatusPending}
	s, mock, reports, _, users, _, _, status := newTestAdminService(t, report)
	reports.updateErr = repository.ErrReportStatusInvalid

	mock.ExpectBegin()
	mock.ExpectRollback()

	// 并发处理时条件更新失败的一方整个事务回滚
	err := s.ProcessReport(context.Background(), 100, 1, true, "")
	assert.ErrorIs(t, err, ErrReportProcessed)

	assert.Empty(t, users.statusSets)
	assert.Empty(t, status.overrides)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessReportNotFound(t *testing.T) {
	s, _, _, _, _, _, _, _ := newTestAdminService(t, nil)

	err := s.ProcessReport(context.Background(), 100, 404, true, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestProcessReportAcceptCommentAuditOnly(t *testing.T) {
	report := &model.Report{ID: 1, ReporterID: 5, TargetType: model.ReportTargetComment, TargetID: 77, Status: model.ReportStatusPending}
	s, mock, reports, posts, users, audits, _, _ := newTestAdminService(t, report)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.ProcessReport(context.Background(), 100, 1, true, "")
	require.NoError(t, err)

	// 评论通过只留状态和审计
	assert.Equal(t, [][2]string{{model.ReportStatusPending, model.ReportStatusAccepted}}, reports.transitions)
	require.Len(t, audits.entries, 1)
	assert.Empty(t, posts.softDeleted)
	assert.Empty(t, users.statusSets)
}

func TestListReportsTargetDetail(t *testing.T) {
	s, _, reports, _, _, _, _, _ := newTestAdminService(t, nil)
	reports.listResp = []*model.Report{
		{ID: 1, TargetType: model.ReportTargetPost, TargetID: 10},
		{ID: 2, TargetType: model.ReportTargetUser, TargetID: 9},
		{ID: 3, TargetType: model.ReportTargetComment, TargetID: 77},
	}

	views, total, err := s.ListReports(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 3)

	require.NotNil(t, views[0].TargetDetail)
	assert.NotNil(t, views[0].TargetDetail.Post)

	require.NotNil(t, views[1].TargetDetail)
	require.NotNil(t, views[1].TargetDetail.User)
	assert.Equal(t, int64(9), views[1].TargetDetail.User.ID)

	require.NotNil(t, views[2].TargetDetail)
	require.NotNil(t, views[2].TargetDetail.Comment)
	assert.Equal(t, int64(77), *views[2].TargetDetail.Comment)
}
