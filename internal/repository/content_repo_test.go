package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

func TestAnnouncementRepositoryListActiveFiltersAndPaginates(t *testing.T) {
	db := setupContentTestDB(t, &models.Announcement{})
	repo := NewAnnouncementRepository(db)

	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)
	past := now.Add(-48 * time.Hour)
	soon := now.Add(1 * time.Hour)
	ended := now.Add(-time.Hour)

	pinned := models.Announcement{Title: "Pinned", Body: "<p>pinned</p>", PostedBy: 1, StartsAt: past, IsPinned: true, IsActive: true}
	active := models.Announcement{Title: "Active", Body: "<p>active</p>", PostedBy: 1, StartsAt: past, EndsAt: &soon, IsActive: true}
	upcoming := models.Announcement{Title: "Future", Body: "future", PostedBy: 1, StartsAt: future, IsActive: true}
	expired := models.Announcement{Title: "Expired", Body: "expired", PostedBy: 1, StartsAt: past, EndsAt: &ended, IsActive: true}
	hidden := models.Announcement{Title: "Hidden", Body: "hidden", PostedBy: 1, StartsAt: past, IsActive: false}

	for _, item := range []*models.Announcement{&pinned, &active, &upcoming, &expired, &hidden} {
		require.NoError(t, db.Create(item).Error)
	}

	items, total, err := repo.ListActive(context.Background(), AnnouncementFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.Equal(t, "Pinned", items[0].Title, "pinned announcement should appear first")
	require.Equal(t, "Active", items[1].Title)

	paged, total, err := repo.ListActive(context.Background(), AnnouncementFilter{Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	require.Equal(t, "Active", paged[0].Title)
}

func TestAnnouncementRepositoryCrud(t *testing.T) {
	db := setupContentTestDB(t, &models.Announcement{})
	repo := NewAnnouncementRepository(db)
	ctx := context.Background()

	item := models.Announcement{Title: "Exam week", Body: "Bring pencils", PostedBy: 3, StartsAt: time.Now().UTC(), IsActive: true}
	require.NoError(t, repo.Create(ctx, &item))
	require.NotZero(t, item.AnnouncementID)

	item.Title = "Exam week moved"
	require.NoError(t, repo.Update(ctx, &item))

	stored, err := repo.FindByID(ctx, item.AnnouncementID)
	require.NoError(t, err)
	require.Equal(t, "Exam week moved", stored.Title)

	require.NoError(t, repo.Delete(ctx, item.AnnouncementID))
	require.ErrorIs(t, repo.Delete(ctx, item.AnnouncementID), gorm.ErrRecordNotFound)

	_, err = repo.FindByID(ctx, item.AnnouncementID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWelcomeCardRepositoryOrderingAndReorder(t *testing.T) {
	db := setupContentTestDB(t, &models.WelcomeCard{})
	repo := NewWelcomeCardRepository(db)
	ctx := context.Background()

	next, err := repo.NextDisplayOrder(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, next)

	first := models.WelcomeCard{Title: "Hello", DisplayOrder: 0, IsActive: true, Metadata: datatypes.JSONMap{"theme": "blue"}}
	second := models.WelcomeCard{Title: "Library", DisplayOrder: 1, IsActive: true}
	draft := models.WelcomeCard{Title: "Draft", DisplayOrder: 2, IsActive: false}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))
	require.NoError(t, repo.Create(ctx, &draft))

	next, err = repo.NextDisplayOrder(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, next)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "Hello", active[0].Title)
	require.Equal(t, "blue", active[0].Metadata["theme"])

	require.NoError(t, repo.Reorder(ctx, map[uint]int{first.CardID: 5, second.CardID: 4}))
	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Draft", all[0].Title)
	require.Equal(t, "Library", all[1].Title)
	require.Equal(t, "Hello", all[2].Title)

	err = repo.Reorder(ctx, map[uint]int{first.CardID: 0, 999: 1})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	stored, err := repo.FindByID(ctx, first.CardID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.DisplayOrder, "failed reorder is rolled back")

	require.NoError(t, repo.Delete(ctx, draft.CardID))
	require.ErrorIs(t, repo.Delete(ctx, draft.CardID), gorm.ErrRecordNotFound)
}

func TestUploadRepositoryCreate(t *testing.T) {
	db := setupContentTestDB(t, &models.UploadRecord{})
	repo := NewUploadRepository(db)

	record := models.UploadRecord{FileName: "report.pdf", URL: "https://cdn.example.com/report.pdf", MimeType: "application/pdf", SizeBytes: 2048, Checksum: "abc123"}
	require.NoError(t, repo.Create(context.Background(), &record))
	require.NotZero(t, record.FileID)

	var stored models.UploadRecord
	require.NoError(t, db.First(&stored, record.FileID).Error)
	require.Equal(t, "report.pdf", stored.FileName)
	require.Equal(t, "application/pdf", stored.MimeType)
}

func TestAccountRepositoryLookups(t *testing.T) {
	db := setupContentTestDB(t, &models.AdminAccount{}, &models.AdminProfile{}, &models.StudentAccount{}, &models.StudentProfile{})
	repo := NewAccountRepository(db)
	ctx := context.Background()

	admin := seedAdmin(t, db, "Head@School.test", "Head", "Teacher")
	student := seedStudent(t, db, "2024-0042", "Sam", "Pupil")

	found, err := repo.FindAdminByEmail(ctx, "  head@school.TEST ")
	require.NoError(t, err)
	require.Equal(t, admin.AdminID, found.AdminID)
	require.NotNil(t, found.Profile)
	require.Equal(t, "Teacher", found.Profile.LastName)

	byID, err := repo.FindAdminByID(ctx, admin.AdminID)
	require.NoError(t, err)
	require.Equal(t, "Head@School.test", byID.Email)

	pupil, err := repo.FindStudentByNumber(ctx, "2024-0042")
	require.NoError(t, err)
	require.Equal(t, student.StudentID, pupil.StudentID)
	require.Equal(t, "Sam", pupil.Profile.FirstName)

	_, err = repo.FindStudentByID(ctx, student.StudentID+1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func setupContentTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}
