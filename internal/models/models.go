package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ProjectStatus is the lifecycle label of a project.
type ProjectStatus string

const (
	ProjectNew        ProjectStatus = "New"
	ProjectInProgress ProjectStatus = "In-progress"
	ProjectSuccess    ProjectStatus = "Success"
	ProjectCancelled  ProjectStatus = "cancelled"
	ProjectLTS        ProjectStatus = "LTS"
	ProjectLated      ProjectStatus = "Lated"
	ProjectOnHold     ProjectStatus = "On Hold"
)

// StatusAll is the filter sentinel that matches every project status.
const StatusAll = "All"

// DueDateLTS marks a project without a deadline.
const DueDateLTS = "LTS"

// ValidProjectStatuses enumerates the statuses a project can be saved with.
// The empty status is accepted and means "unset".
var ValidProjectStatuses = map[ProjectStatus]struct{}{
	ProjectNew:        {},
	ProjectInProgress: {},
	ProjectSuccess:    {},
	ProjectCancelled:  {},
	ProjectLTS:        {},
	ProjectLated:      {},
	ProjectOnHold:     {},
}

// MemberRole is the role a member holds inside a single project.
type MemberRole string

const (
	RoleAdmin       MemberRole = "Admin"
	RoleMember      MemberRole = "Member"
	RoleStakeHolder MemberRole = "StakeHolder"
)

var ValidMemberRoles = map[MemberRole]struct{}{
	RoleAdmin:       {},
	RoleMember:      {},
	RoleStakeHolder: {},
}

// TaskStatus is the workflow state of a task card.
type TaskStatus string

const (
	TaskUnread      TaskStatus = "Unread"
	TaskInProgress  TaskStatus = "In-progress"
	TaskWaitApprove TaskStatus = "Wait Approve"
	TaskDone        TaskStatus = "done"
	TaskRejected    TaskStatus = "rejected"
	TaskCancelled   TaskStatus = "cancelled"
)

// ValidTaskStatuses enumerates the statuses a task can be saved with.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	TaskUnread:      {},
	TaskInProgress:  {},
	TaskWaitApprove: {},
	TaskDone:        {},
	TaskRejected:    {},
	TaskCancelled:   {},
}

// Priority is the grouping axis of every task view.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Priorities lists the known buckets in display order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

// Validation errors returned by the Validate helpers.
var (
	ErrInvalidProjectStatus = errors.New("invalid project status")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidRole          = errors.New("invalid member role")
	ErrDuplicateMember      = errors.New("duplicate member id")
	ErrEmptyName            = errors.New("name must not be empty")
	ErrEmptyTitle           = errors.New("task title must not be empty")
	ErrEmptyComment         = errors.New("comment message must not be empty")
)

// User is the authenticated identity.
type User struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Member is a participant listed on a project.
type Member struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email,omitempty"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// Project groups tasks and members. All queries are scoped by UserID.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Members        []Member      `json:"members"`
	ProjectStatus  ProjectStatus `json:"projectStatus,omitempty"`
	ProjectDueDate string        `json:"projectDueDate,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	UserID         string        `json:"userId"`
}

// Validate checks the user-editable fields of a project.
func (p Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project: %w", ErrEmptyName)
	}
	if p.ProjectStatus != "" {
		if _, ok := ValidProjectStatuses[p.ProjectStatus]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidProjectStatus, p.ProjectStatus)
		}
	}
	seen := make(map[string]struct{}, len(p.Members))
	for _, m := range p.Members {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateMember, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// Validate checks a single member entry.
func (m Member) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("member: %w", ErrEmptyName)
	}
	if _, ok := ValidMemberRoles[m.Role]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	return nil
}

// Comment is an append-only note on a task. Author is free text.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Assignee is either everyone on the project or a snapshot of one member.
// It encodes as the string "All" or as a member object.
type Assignee struct {
	Member *Member
}

// AssignAll is the assignee that targets every member.
var AssignAll = Assignee{}

// All reports whether the task is assigned to every member.
func (a Assignee) All() bool { return a.Member == nil }

func (a Assignee) MarshalJSON() ([]byte, error) {
	if a.Member == nil {
		return json.Marshal(StatusAll)
	}
	return json.Marshal(a.Member)
}

func (a *Assignee) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != StatusAll && s != "" {
			return fmt.Errorf("assignee: unexpected value %q", s)
		}
		a.Member = nil
		return nil
	}
	if string(data) == "null" {
		a.Member = nil
		return nil
	}
	var m Member
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("assignee: %w", err)
	}
	a.Member = &m
	return nil
}

// Task is a single card on a project board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *string    `json:"dueDate"`
	AssignedTo  Assignee   `json:"AssignedTo"`
	Comments    []Comment  `json:"comments"`
	ProjectID   string     `json:"projectId"`
	ProjectName string     `json:"projectName"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks the user-editable fields of a task.
func (t Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if err := ValidateTaskStatus(t.Status); err != nil {
		return err
	}
	return ValidatePriority(t.Priority)
}

func ValidateTaskStatus(s TaskStatus) error {
	if _, ok := ValidTaskStatuses[s]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, s)
	}
	return nil
}

func ValidatePriority(p Priority) error {
	if _, ok := ValidPriorities[p]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, p)
	}
	return nil
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
// ProjectID is absent: a task never moves between projects.
type TaskPatch struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Status      *TaskStatus `json:"status"`
	Priority    *Priority   `json:"priority"`
	AssignedTo  *Assignee   `json:"AssignedTo"`

	// DueDate is applied only when SetDueDate is true; nil then clears it.
	DueDate    *string `json:"dueDate"`
	SetDueDate bool    `json:"-"`
}

// UnmarshalJSON marks the due date as set whenever the key is present,
// so that an explicit null clears it.
func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	type plain TaskPatch
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, decoded.SetDueDate = keys["dueDate"]
	*p = TaskPatch(decoded)
	return nil
}

// Apply merges the patch into t and validates the result.
func (p TaskPatch) Apply(t *Task) error {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.SetDueDate {
		t.DueDate = p.DueDate
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	return t.Validate()
}

// IsValidation reports whether err came from one of the Validate helpers.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidProjectStatus, ErrInvalidTaskStatus, ErrInvalidPriority, ErrInvalidRole,
		ErrDuplicateMember, ErrEmptyName, ErrEmptyTitle, ErrEmptyComment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
