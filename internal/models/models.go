package models

import "time"

type AssignmentStatus string

const (
	AssignmentStatusPending AssignmentStatus = "pending"
	AssignmentStatusDone    AssignmentStatus = "done"

	// Missed is never stored; it is derived at read time from a pending
	// assignment whose week has fully passed.
	AssignmentStatusMissed AssignmentStatus = "missed"
)

type CompletionMode string

const (
	CompletionModeOwn      CompletionMode = "own"
	CompletionModeTakeover CompletionMode = "takeover"
)

type OverrideType string

const (
	OverrideTypeManualSwap   OverrideType = "manual_swap"
	OverrideTypeCompensation OverrideType = "compensation"
)

type OverrideSource string

const (
	OverrideSourceManual   OverrideSource = "manual"
	OverrideSourceTakeover OverrideSource = "takeover"
)

type OverrideStatus string

const (
	OverrideStatusPlanned  OverrideStatus = "planned"
	OverrideStatusApplied  OverrideStatus = "applied"
	OverrideStatusCanceled OverrideStatus = "canceled"
)

type Member struct {
	ID               int64
	DisplayName      string
	HAUserID         *string
	HAPersonEntityID *string
	NotifyService    *string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RotationConfig is the singleton snapshot of the rotation order. The
// relative order of surviving members is frozen so that past baseline
// assignments never move when the flat's membership changes.
type RotationConfig struct {
	OrderedMemberIDs []int64
	AnchorWeekStart  *time.Time
}

type WeekAssignment struct {
	WeekStart           time.Time
	AssigneeMemberID    *int64
	Status              AssignmentStatus
	CompletedByMemberID *int64
	CompletionMode      *CompletionMode
	CompletedAt         *time.Time
}

type Override struct {
	ID                int64
	WeekStart         time.Time
	Type              OverrideType
	Source            OverrideSource
	Status            OverrideStatus
	MemberFromID      int64
	MemberToID        int64
	PartnerWeekStart  *time.Time
	SourceWeekStart   *time.Time
	SourceEventID     *int64
	CreatedByMemberID *int64
	CreatedAt         time.Time
}

// CompensationDebt records a takeover whose make-up week could not be
// placed because the cleaner has no eligible baseline week within the
// lookahead horizon. The sweeper settles it once one appears.
type CompensationDebt struct {
	ID                       int64
	SourceWeekStart          time.Time
	CleanerMemberID          int64
	OriginalAssigneeMemberID int64
	SourceEventID            *int64
	CreatedAt                time.Time
	SettledOverrideID        *int64
	SettledAt                *time.Time
}

type ActivityEvent struct {
	ID            int64
	Domain        string
	Action        string
	ActorMemberID *int64
	ActorUserID   *string
	Payload       map[string]any
	CreatedAt     time.Time
}

// NotificationIntent is a delivery-agnostic notification plan. The HA
// integration layer resolves the notify service and pushes the message;
// this service only decides who should hear what.
type NotificationIntent struct {
	MemberID      *int64  `json:"member_id"`
	NotifyService *string `json:"notify_service"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	WeekStart     string  `json:"week_start,omitempty"`
	Kind          string  `json:"notification_kind,omitempty"`
	Slot          string  `json:"notification_slot,omitempty"`
	SourceAction  string  `json:"source_action,omitempty"`
}
