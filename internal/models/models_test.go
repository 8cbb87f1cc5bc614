package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssigneeJSON(t *testing.T) {
	b, err := json.Marshal(AssignAll)
	require.NoError(t, err)
	assert.JSONEq(t, `"All"`, string(b))

	var a Assignee
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","name":"Ann","role":"Admin"}`), &a))
	require.NotNil(t, a.Member)
	assert.Equal(t, "Ann", a.Member.Name)
	assert.False(t, a.All())

	require.NoError(t, json.Unmarshal([]byte(`"All"`), &a))
	assert.True(t, a.All())

	assert.Error(t, json.Unmarshal([]byte(`"Bob"`), &a))
}

func TestTaskPatchDueDate(t *testing.T) {
	due := "2024-05-01"
	task := Task{Title: "t", Status: TaskUnread, Priority: PriorityLow, DueDate: &due}

	var keep TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"renamed"}`), &keep))
	assert.False(t, keep.SetDueDate)
	require.NoError(t, keep.Apply(&task))
	assert.Equal(t, "renamed", task.Title)
	require.NotNil(t, task.DueDate)

	var clear TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":null}`), &clear))
	assert.True(t, clear.SetDueDate)
	require.NoError(t, clear.Apply(&task))
	assert.Nil(t, task.DueDate)
}

func TestTaskPatchRejectsUnknownStatus(t *testing.T) {
	task := Task{Title: "t", Status: TaskUnread, Priority: PriorityLow}
	bad := TaskStatus("archived")
	err := TaskPatch{Status: &bad}.Apply(&task)
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
	assert.True(t, IsValidation(err))
}

func TestProjectValidate(t *testing.T) {
	ok := Project{Name: "p", Members: []Member{{ID: "a", Name: "A", Role: RoleAdmin}, {ID: "b", Name: "B", Role: RoleStakeHolder}}}
	assert.NoError(t, ok.Validate())

	dup := Project{Name: "p", Members: []Member{{ID: "a", Name: "A", Role: RoleAdmin}, {ID: "a", Name: "B", Role: RoleMember}}}
	assert.ErrorIs(t, dup.Validate(), ErrDuplicateMember)

	assert.ErrorIs(t, Project{}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Project{Name: "p", ProjectStatus: "Done"}.Validate(), ErrInvalidProjectStatus)
	assert.NoError(t, Project{Name: "p"}.Validate(), "unset status is allowed")
	assert.ErrorIs(t, Project{Name: "p", Members: []Member{{ID: "a", Name: "A", Role: "Owner"}}}.Validate(), ErrInvalidRole)
}
