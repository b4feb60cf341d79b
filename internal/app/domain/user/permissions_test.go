package user

import "testing"

func TestRoleCan(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleVolunteer, PermPeopleRead, true},
		{RoleVolunteer, PermPeopleWrite, false},
		{RoleVolunteer, PermAttendanceWrite, true},
		{RoleFinance, PermDonationsWrite, true},
		{RolePastor, PermDonationsRead, false},
		{RolePastor, PermSermonHelperUse, true},
		{RoleStaff, PermSermonHelperUse, false},
		{RoleAdmin, PermAuditRead, true},
		{RoleAdmin, Permission("nope"), false},
	}
	for _, tt := range tests {
		if got := tt.role.Can(tt.perm); got != tt.want {
			t.Errorf("%s.Can(%s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("finance"); !ok || r != RoleFinance {
		t.Fatalf("ParseRole(finance) = %v %v", r, ok)
	}
	if _, ok := ParseRole("bishop"); ok {
		t.Fatal("unexpected role accepted")
	}
}
