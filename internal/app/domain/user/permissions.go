package user

// Permission names a guarded API procedure group.
type Permission string

const (
	PermPeopleRead      Permission = "people.read"
	PermPeopleWrite     Permission = "people.write"
	PermBulletinsRead   Permission = "bulletins.read"
	PermBulletinsWrite  Permission = "bulletins.write"
	PermSermonsRead     Permission = "sermons.read"
	PermSermonsWrite    Permission = "sermons.write"
	PermAttendanceRead  Permission = "attendance.read"
	PermAttendanceWrite Permission = "attendance.write"
	PermPrayerRead      Permission = "prayer.read"
	PermPrayerManage    Permission = "prayer.manage"
	PermDonationsRead   Permission = "donations.read"
	PermDonationsWrite  Permission = "donations.write"
	PermSettingsRead    Permission = "settings.read"
	PermSettingsWrite   Permission = "settings.write"
	PermUsersManage     Permission = "users.manage"
	PermAuditRead       Permission = "audit.read"
	PermSermonHelperUse Permission = "sermonhelper.use"
	PermDashboardRead   Permission = "dashboard.read"
)

var everyone = []Role{RoleAdmin, RolePastor, RoleStaff, RoleFinance, RoleVolunteer}

var matrix = map[Permission][]Role{
	PermPeopleRead:      everyone,
	PermPeopleWrite:     {RoleAdmin, RolePastor, RoleStaff},
	PermBulletinsRead:   everyone,
	PermBulletinsWrite:  {RoleAdmin, RolePastor, RoleStaff},
	PermSermonsRead:     everyone,
	PermSermonsWrite:    {RoleAdmin, RolePastor},
	PermAttendanceRead:  everyone,
	PermAttendanceWrite: {RoleAdmin, RolePastor, RoleStaff, RoleVolunteer},
	PermPrayerRead:      everyone,
	PermPrayerManage:    {RoleAdmin, RolePastor},
	PermDonationsRead:   {RoleAdmin, RoleFinance},
	PermDonationsWrite:  {RoleAdmin, RoleFinance},
	PermSettingsRead:    everyone,
	PermSettingsWrite:   {RoleAdmin},
	PermUsersManage:     {RoleAdmin},
	PermAuditRead:       {RoleAdmin},
	PermSermonHelperUse: {RoleAdmin, RolePastor},
	PermDashboardRead:   everyone,
}

// Can reports whether role holds perm. Unknown permissions are denied.
func (r Role) Can(perm Permission) bool {
	for _, allowed := range matrix[perm] {
		if allowed == r {
			return true
		}
	}
	return false
}
