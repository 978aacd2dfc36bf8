package bot

import (
	"fmt"
	"strconv"
	"strings"

	"campusride/pkg/models"
)

const (
	actionApproveStudent = "stu_ok"
	actionApproveDriver  = "drv_ok"
	actionRejectDriver   = "drv_no"
)

func callbackData(action string, id int64) string {
	return action + "_" + strconv.FormatInt(id, 10)
}

// parseCallback splits "drv_ok_12" into its action and id. Telebot prefixes
// button data built with a unique name by \f and may append "|payload".
func parseCallback(data string) (string, int64, bool) {
	data = strings.TrimPrefix(data, "\f")
	if j := strings.Index(data, "|"); j >= 0 {
		data = data[:j]
	}
	i := strings.LastIndex(data, "_")
	if i <= 0 {
		return "", 0, false
	}
	action := data[:i]
	switch action {
	case actionApproveStudent, actionApproveDriver, actionRejectDriver:
	default:
		return "", 0, false
	}
	id, err := strconv.ParseInt(data[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

func formatStudent(u *models.User) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎓 NEW STUDENT #%d\n", u.ID)
	fmt.Fprintf(&sb, "👤 %s\n📧 %s\n🆔 %s", u.Username, u.Email, u.StudentID)
	if u.University != "" {
		fmt.Fprintf(&sb, "\n🏫 %s", u.University)
	}
	if u.Major != "" {
		fmt.Fprintf(&sb, " / %s", u.Major)
	}
	return sb.String()
}

func formatApplication(app *models.DriverApplication) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚗 DRIVER APPLICATION #%d\n", app.ID)
	if app.Username != "" {
		fmt.Fprintf(&sb, "👤 %s (%s)\n", app.Username, app.Email)
	} else {
		fmt.Fprintf(&sb, "👤 user #%d\n", app.UserID)
	}
	fmt.Fprintf(&sb, "🪪 %s\n🚘 %d %s %s, %s\n🔢 %s",
		app.LicenseNumber, app.VehicleYear, app.VehicleMake, app.VehicleModel, app.VehicleColor, app.PlateNumber)
	return sb.String()
}

func formatStats(s *models.AdminStats) string {
	return fmt.Sprintf("📊 STATISTICS\n\nStudents: %d pending, %d approved\nDrivers: %d pending, %d approved\nRides: %d total, %d completed",
		s.PendingStudents, s.ApprovedStudents, s.PendingDrivers, s.ApprovedDrivers, s.TotalRides, s.CompletedRides)
}
