package middleware

import (
	"net/http"

	"github.com/ascend-academy/api/internal/enum"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Resource names used by the router and the policy table.
const (
	ResourceApprovals     = "admin_approvals"
	ResourceUsers         = "users"
	ResourcePlayers       = "players"
	ResourceEvents        = "events"
	ResourceAttendance    = "attendance"
	ResourceTraining      = "training_programs"
	ResourceMessaging     = "messaging"
	ResourceInsights      = "ai_insights"
	ResourceVideoAnalysis = "video_analysis"
	ResourceComparisons   = "player_comparison"
	ResourceLedger        = "ledger"
)

// Policy maps resource × operation to the roles allowed to perform it.
type Policy map[string]map[Operation][]string

func OperationFor(method string) Operation {
	switch method {
	case http.MethodPost:
		return OpCreate
	case http.MethodPut, http.MethodPatch:
		return OpUpdate
	case http.MethodDelete:
		return OpDelete
	default:
		return OpRead
	}
}

// Allows reports whether role may perform op on resource. Unknown resources
// and operations are denied.
func (p Policy) Allows(resource string, op Operation, role string) bool {
	ops, ok := p[resource]
	if !ok {
		return false
	}
	return enum.IsValid(role, ops[op]...)
}

func DefaultPolicy() Policy {
	var (
		everyone = enum.Roles
		admins   = []string{enum.RoleSuperAdmin, enum.RoleAdmin}
		staff    = []string{enum.RoleSuperAdmin, enum.RoleAdmin, enum.RoleCoach}
		analysts = []string{enum.RoleSuperAdmin, enum.RoleAdmin, enum.RoleCoach, enum.RoleScout}
		scouting = []string{enum.RoleSuperAdmin, enum.RoleAdmin, enum.RoleScout}
		platform = []string{enum.RoleSuperAdmin}
		squad    = []string{enum.RoleSuperAdmin, enum.RoleAdmin, enum.RoleCoach, enum.RolePlayer, enum.RoleParent}
		crudFor  = func(read, write []string) map[Operation][]string {
			return map[Operation][]string{OpRead: read, OpCreate: write, OpUpdate: write, OpDelete: write}
		}
	)

	return Policy{
		ResourceApprovals:  crudFor(platform, platform),
		ResourceUsers:      {OpRead: everyone, OpCreate: admins, OpUpdate: everyone, OpDelete: admins},
		ResourcePlayers:    {OpRead: everyone, OpCreate: staff, OpUpdate: staff, OpDelete: admins},
		ResourceEvents:     crudFor(everyone, staff),
		ResourceAttendance: crudFor(squad, staff),
		ResourceTraining:   crudFor(squad, staff),
		ResourceMessaging:  crudFor(everyone, everyone),
		ResourceInsights:   crudFor(analysts, staff),
		ResourceVideoAnalysis: {
			OpRead:   analysts,
			OpCreate: staff,
			OpUpdate: staff,
		},
		ResourceComparisons: crudFor(scouting, scouting),
		ResourceLedger:      crudFor(admins, admins),
	}
}
