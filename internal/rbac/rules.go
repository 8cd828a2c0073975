package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"assessment:view",
		"assignment:view",
		"result:create",
		"result:view-own",
		"submission:create",
		"submission:view-own",
		"notification:own",
		"file:upload",
		"file:view",
	},
	RoleTeacher: {
		"assessment:*",
		"assignment:*",
		"result:view-all",
		"result:grade",
		"submission:view-all",
		"submission:grade",
		"notification:*",
		"file:*",
		"users:list",
		"users:bulk_upsert",
	},
	RoleManager: {
		"assessment:view",
		"assignment:view",
		"result:view-all",
		"submission:view-all",
		"notification:own",
		"file:view",
		"users:list",
	},
	RoleAdmin: {
		"*",
	},
}
