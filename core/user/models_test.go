package user

import "testing"

func TestUser_roles(t *testing.T) {
	tests := []struct {
		name                          string
		roles                         []string
		isAdmin, isTeacher, isStudent bool
	}{
		{name: "no roles"},
		{name: "student", roles: []string{RoleStudent}, isStudent: true},
		{name: "teacher", roles: []string{RoleTeacher}, isTeacher: true},
		{name: "principal", roles: []string{RoleAdminPrincipal}, isAdmin: true},
		{name: "teacher & student", roles: []string{RoleTeacher, RoleStudent}, isTeacher: true, isStudent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{Roles: tt.roles}
			if got := usr.IsAdmin(); got != tt.isAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.isAdmin)
			}
			if got := usr.IsTeacher(); got != tt.isTeacher {
				t.Errorf("IsTeacher() = %v, want %v", got, tt.isTeacher)
			}
			if got := usr.IsStudent(); got != tt.isStudent {
				t.Errorf("IsStudent() = %v, want %v", got, tt.isStudent)
			}
		})
	}
}

func TestUser_CanSpend(t *testing.T) {
	usr := User{PointsBalance: 50}
	tests := []struct {
		points int
		want   bool
	}{
		{points: 0, want: true},
		{points: 50, want: true},
		{points: 51, want: false},
		{points: -1, want: false},
	}
	for _, tt := range tests {
		if got := usr.CanSpend(tt.points); got != tt.want {
			t.Errorf("CanSpend(%d) = %v, want %v", tt.points, got, tt.want)
		}
	}
}
