package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	AcademyStatusPending  = "pending"
	AcademyStatusApproved = "approved"
	AcademyStatusRejected = "rejected"
)

const (
	AnalysisStatusQueued     = "queued"
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
	AnalysisStatusCancelled  = "cancelled"
)

// ── Group B: Roles and enumerated labels (CHECK constrained in DB) ──

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleCoach      = "coach"
	RolePlayer     = "player"
	RoleScout      = "scout"
	RoleParent     = "parent"
)

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

const (
	EventTypeTraining   = "training"
	EventTypeMatch      = "match"
	EventTypeTournament = "tournament"
	EventTypeMeeting    = "meeting"
	EventTypeOther      = "other"
)

const (
	PlayerStatusActive   = "active"
	PlayerStatusInactive = "inactive"
	PlayerStatusInjured  = "injured"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

const (
	InsightPerformance = "performance"
	InsightInjuryRisk  = "injury_risk"
	InsightDevelopment = "development"
	InsightTactical    = "tactical"
)

// ── Group C: Ledger account kinds (no DB constraint, selects the table) ──

const (
	AccountDealer   = "dealer"
	AccountSupplier = "supplier"
)

// IsValid reports whether v is one of allowed.
func IsValid(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

var Roles = []string{RoleSuperAdmin, RoleAdmin, RoleCoach, RolePlayer, RoleScout, RoleParent}

var AttendanceStatuses = []string{AttendancePresent, AttendanceAbsent, AttendanceLate}

var EventTypes = []string{EventTypeTraining, EventTypeMatch, EventTypeTournament, EventTypeMeeting, EventTypeOther}

var PlayerStatuses = []string{PlayerStatusActive, PlayerStatusInactive, PlayerStatusInjured}

var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

var InsightTypes = []string{InsightPerformance, InsightInjuryRisk, InsightDevelopment, InsightTactical}
