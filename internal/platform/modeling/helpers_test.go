package modeling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAll([]SchemaDescriptor{
		{
			ResourceType: "Patient",
			Fields: map[string]FieldInfo{
				"id":                   {Type: TypeString},
				"resource_type":        {Type: TypeString},
				"created_at":           {Type: TypeDateTime},
				"updated_at":           {Type: TypeDateTime},
				"full_name":            {Type: TypeString, Required: true},
				"gender":               {Type: TypeString},
				"birth_date":           {Type: TypeDate},
				"active":               {Type: TypeBoolean},
				"managingOrganization": {Type: TypeReference},
			},
		},
		{
			ResourceType: "Observation",
			Fields: map[string]FieldInfo{
				"id":            {Type: TypeString},
				"resource_type": {Type: TypeString},
				"status":        {Type: TypeString, Required: true},
				"value":         {Type: TypeNumber},
				"count":         {Type: TypeInteger},
				"subject":       {Type: TypeReference},
				"tags":          {Type: "list[string]"},
				"component":     {Type: TypeArray},
				"code":          {Type: TypeObject},
			},
		},
		{
			ResourceType: "Encounter",
			Fields: map[string]FieldInfo{
				"id":      {Type: TypeString},
				"status":  {Type: TypeString},
				"subject": {Type: TypeReference},
			},
		},
		{
			ResourceType: "Organization",
			Fields: map[string]FieldInfo{
				"id":   {Type: TypeString},
				"name": {Type: TypeString},
			},
		},
	}))
	return reg
}

func fixedClock(t *testing.T) {
	t.Helper()
	prevClock, prevID := Clock, NewID
	Clock = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	n := 0
	NewID = func() string {
		n++
		return "gen-" + string(rune('a'+n-1))
	}
	t.Cleanup(func() {
		Clock, NewID = prevClock, prevID
	})
}
