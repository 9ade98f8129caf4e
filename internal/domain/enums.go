package domain

// WorkItemKind distinguishes the two work item variants.
type WorkItemKind string

const (
	WorkItemKindTask WorkItemKind = "TASK"
	WorkItemKindBug  WorkItemKind = "BUG"
)

func (k WorkItemKind) String() string { return string(k) }

func (k WorkItemKind) IsValid() bool {
	switch k {
	case WorkItemKindTask, WorkItemKindBug:
		return true
	}
	return false
}

// WorkItemStatus represents the lifecycle status of a work item.
type WorkItemStatus string

const (
	StatusToDo         WorkItemStatus = "TO_DO"
	StatusInProgress   WorkItemStatus = "IN_PROGRESS"
	StatusReadyForTest WorkItemStatus = "READY_FOR_TEST"
	StatusInReview     WorkItemStatus = "IN_REVIEW"
	StatusRejected     WorkItemStatus = "REJECTED"
	StatusDone         WorkItemStatus = "DONE"
)

func (s WorkItemStatus) String() string { return string(s) }

func (s WorkItemStatus) IsValid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReadyForTest, StatusInReview, StatusRejected, StatusDone:
		return true
	}
	return false
}

// ApprovalStatus represents the team-lead review sub-state after a developer
// finishes an item.
type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = "NONE"
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) String() string { return string(s) }

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusNone, ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

// QAStatus represents the QA review sub-state.
type QAStatus string

const (
	QAStatusNone            QAStatus = "NONE"
	QAStatusReadyForTest    QAStatus = "READY_FOR_TEST"
	QAStatusTesting         QAStatus = "TESTING"
	QAStatusTestingPaused   QAStatus = "TESTING_PAUSED"
	QAStatusTestingFinished QAStatus = "TESTING_FINISHED"
	QAStatusApproved        QAStatus = "APPROVED"
	QAStatusRejected        QAStatus = "REJECTED"
)

func (s QAStatus) String() string { return string(s) }

func (s QAStatus) IsValid() bool {
	switch s {
	case QAStatusNone, QAStatusReadyForTest, QAStatusTesting, QAStatusTestingPaused,
		QAStatusTestingFinished, QAStatusApproved, QAStatusRejected:
		return true
	}
	return false
}

// Reviewable reports whether QA may act on an item in this sub-state.
func (s QAStatus) Reviewable() bool {
	return s == QAStatusReadyForTest || s == QAStatusTestingFinished
}

// SessionAction tags a ledger entry with the operation that opened it.
type SessionAction string

const (
	SessionActionStart            SessionAction = "START"
	SessionActionPause            SessionAction = "PAUSE"
	SessionActionResume           SessionAction = "RESUME"
	SessionActionFinish           SessionAction = "FINISH"
	SessionActionResumeAutoPaused SessionAction = "RESUME_AUTO_PAUSED"
)

func (a SessionAction) String() string { return string(a) }

func (a SessionAction) IsValid() bool {
	switch a {
	case SessionActionStart, SessionActionPause, SessionActionResume,
		SessionActionFinish, SessionActionResumeAutoPaused:
		return true
	}
	return false
}

// ReturnedBy identifies which review stage sent an item back for rework.
type ReturnedBy string

const (
	ReturnedByQA       ReturnedBy = "QA"
	ReturnedByTeamLead ReturnedBy = "TEAM_LEAD"
)

func (r ReturnedBy) String() string { return string(r) }

func (r ReturnedBy) IsValid() bool {
	switch r {
	case ReturnedByQA, ReturnedByTeamLead:
		return true
	}
	return false
}

// ProjectRole represents a user's role within a project.
type ProjectRole string

const (
	ProjectRoleDeveloper ProjectRole = "DEVELOPER"
	ProjectRoleQA        ProjectRole = "QA"
	ProjectRoleTeamLead  ProjectRole = "TEAM_LEAD"
)

func (r ProjectRole) String() string { return string(r) }

func (r ProjectRole) IsValid() bool {
	switch r {
	case ProjectRoleDeveloper, ProjectRoleQA, ProjectRoleTeamLead:
		return true
	}
	return false
}
