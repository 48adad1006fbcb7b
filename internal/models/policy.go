package models

// Capability names an action a role may perform. Routes and services check capabilities
// instead of comparing role strings.
type Capability string

const (
	CapManageUsers          Capability = "users:manage"
	CapManageDepartments    Capability = "departments:manage"
	CapManageCourses        Capability = "courses:manage"
	CapExportRoster         Capability = "courses:export"
	CapViewCourseStudents   Capability = "courses:students"
	CapAuthorAssignments    Capability = "assignments:author"
	CapViewAssignments      Capability = "assignments:view"
	CapGradeSubmissions     Capability = "submissions:grade"
	CapSubmitAssignments    Capability = "submissions:create"
	CapRegisterCourses      Capability = "courses:register"
	CapPublishNotifications Capability = "notifications:publish"
	CapManageSchedules      Capability = "schedules:manage"
	CapUploadMaterials      Capability = "materials:upload"
	CapViewStudentProfiles  Capability = "students:view"
	CapModerateForum        Capability = "forum:moderate"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: capabilitySet(
		CapManageUsers, CapManageDepartments, CapManageCourses, CapExportRoster, CapViewCourseStudents,
		CapViewAssignments, CapGradeSubmissions, CapPublishNotifications, CapManageSchedules,
		CapUploadMaterials, CapViewStudentProfiles, CapModerateForum,
	),
	RoleLecturer: capabilitySet(
		CapAuthorAssignments, CapViewAssignments, CapGradeSubmissions, CapViewCourseStudents,
		CapPublishNotifications, CapManageSchedules, CapUploadMaterials, CapViewStudentProfiles,
	),
	RoleStudent: capabilitySet(
		CapViewAssignments, CapSubmitAssignments, CapRegisterCourses,
	),
}

func capabilitySet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role grants capability c.
func (r UserRole) Can(c Capability) bool {
	_, ok := roleCapabilities[r][c]
	return ok
}
