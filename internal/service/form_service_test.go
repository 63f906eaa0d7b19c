package service

import (
	"context"
	"testing"

	"fieldops/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormService_OptionsOnlyForChoiceTypes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := map[string][]domain.FormField{
		"select without options":   {{Label: "State", Type: domain.FieldSelect}},
		"radio with blank options": {{Label: "State", Type: domain.FieldRadio, Options: []string{" ", ""}}},
		"text with options":        {{Label: "Note", Type: domain.FieldText, Options: []string{"a"}}},
		"unknown type":             {{Label: "Map", Type: "map"}},
		"blank label":              {{Label: " ", Type: domain.FieldText}},
		"duplicate ids": {
			{FieldID: "x", Label: "A", Type: domain.FieldText},
			{FieldID: "x", Label: "B", Type: domain.FieldText},
		},
	}
	for name, fields := range cases {
		_, err := env.forms.CreateForm(ctx, SaveFormRequest{Title: "T", Fields: fields})
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	_, err := env.forms.CreateForm(ctx, SaveFormRequest{Title: "  ", Fields: []domain.FormField{{Label: "A", Type: domain.FieldText}}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.forms.CreateForm(ctx, SaveFormRequest{Title: "T"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFormService_ValidationDetailsNameTheField(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.forms.CreateForm(ctx, SaveFormRequest{Title: "T", Fields: []domain.FormField{
		{Label: "Notes", Type: domain.FieldText},
		{Label: "Map", Type: "map"},
	}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Details, `fields[1].type "map" is not supported`)

	_, err = env.forms.CreateForm(ctx, SaveFormRequest{Title: "T", Fields: []domain.FormField{}})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Details, "fields needs at least 1 item(s)")

	fields := []domain.FormField{{FieldID: " a ", Label: " Notes ", Type: domain.FieldText}}
	f, err := env.forms.CreateForm(ctx, SaveFormRequest{Title: " Visit ", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, "Visit", f.Title)
	assert.Equal(t, "a", f.Fields[0].FieldID)
	assert.Equal(t, "Notes", f.Fields[0].Label)
	assert.Equal(t, " Notes ", fields[0].Label)
}

func TestFormService_AssignsFieldIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	f, err := env.forms.CreateForm(ctx, SaveFormRequest{
		Title: "Site visit",
		Fields: []domain.FormField{
			{Label: "Arrival", Type: domain.FieldTime},
			{FieldID: "parts", Label: "Parts", Type: domain.FieldCheckbox, Options: []string{" valve ", "hose"}},
			{Label: "Signature", Type: domain.FieldSignature},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.Fields, 3)
	assert.NotEmpty(t, f.Fields[0].FieldID)
	assert.Equal(t, "parts", f.Fields[1].FieldID)
	assert.Equal(t, []string{"valve", "hose"}, f.Fields[1].Options)
	assert.Nil(t, f.Fields[2].Options)
}

// Jobs keep the title they were created with.
func TestFormService_RenameKeepsJobSnapshot(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.a)

	_, err := f.env.forms.UpdateForm(ctx, SaveFormRequest{
		FormID: f.form.FormID,
		Title:  "Pump checklist v2",
		Fields: f.form.Fields,
	})
	require.NoError(t, err)

	got, err := f.env.jobs.GetJob(ctx, f.b, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Pump checklist", got.FormTitle)

	require.NoError(t, f.env.forms.DeleteForm(ctx, f.form.FormID))
	got, err = f.env.jobs.GetJob(ctx, f.b, j.JobID)
	require.NoError(t, err)
	assert.Nil(t, got.FormID)
	assert.Equal(t, "Pump checklist", got.FormTitle)

	assert.ErrorIs(t, f.env.forms.DeleteForm(ctx, f.form.FormID), ErrNotFound)
}
