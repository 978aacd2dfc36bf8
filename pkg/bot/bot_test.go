package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/service"
	"campusride/storage/memory"
)

func TestParseCallback(t *testing.T) {
	action, id, ok := parseCallback(callbackData(actionRejectDriver, 12))
	require.True(t, ok)
	assert.Equal(t, actionRejectDriver, action)
	assert.Equal(t, int64(12), id)

	action, id, ok = parseCallback("\f" + callbackData(actionApproveStudent, 4) + "|")
	require.True(t, ok)
	assert.Equal(t, actionApproveStudent, action)
	assert.Equal(t, int64(4), id)

	for _, bad := range []string{"", "stu_ok", "stu_ok_", "stu_ok_x", "tf_3", "stu_ok_-1"} {
		_, _, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}

func TestFormatting(t *testing.T) {
	u := &models.User{ID: 3, Username: "sarah", Email: "sarah@uni.edu", StudentID: "S1", University: "State", Major: "CS"}
	txt := formatStudent(u)
	assert.Contains(t, txt, "#3")
	assert.Contains(t, txt, "State / CS")

	app := &models.DriverApplication{ID: 9, UserID: 3, LicenseNumber: "L1", VehicleYear: 2020, VehicleMake: "Honda", VehicleModel: "Fit", VehicleColor: "red", PlateNumber: "P1"}
	assert.Contains(t, formatApplication(app), "user #3")
	app.Username, app.Email = "sarah", "sarah@uni.edu"
	assert.Contains(t, formatApplication(app), "sarah (sarah@uni.edu)")

	stats := formatStats(&models.AdminStats{PendingStudents: 1, TotalRides: 4, CompletedRides: 2})
	assert.Contains(t, stats, "1 pending")
	assert.Contains(t, stats, "4 total, 2 completed")
}

func TestDriverMenuNeedsReviewer(t *testing.T) {
	admin := service.New(memory.New(), service.Options{}, logger.NewNop()).Admin()

	b, err := New(Options{Token: "test", ChatID: 1, Offline: true}, admin, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, b.driverMenu(5).InlineKeyboard)

	b, err = New(Options{Token: "test", ChatID: 1, ReviewerID: 2, Offline: true}, admin, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, b.driverMenu(5).InlineKeyboard, 1)
	assert.Len(t, b.driverMenu(5).InlineKeyboard[0], 2)
}

func TestWithApplicantLeavesCallerCopyAlone(t *testing.T) {
	app := &models.DriverApplication{ID: 9, UserID: 3, LicenseNumber: "L1"}
	u := &models.User{ID: 3, Username: "sarah", Email: "sarah@uni.edu", StudentID: "S1", University: "State"}

	notice := withApplicant(app, u)

	assert.Equal(t, "sarah", notice.Username)
	assert.Equal(t, "State", notice.University)
	assert.Equal(t, app.ID, notice.ID)
	assert.Empty(t, app.Username)
	assert.Empty(t, app.Email)
	assert.Empty(t, app.StudentID)
}
