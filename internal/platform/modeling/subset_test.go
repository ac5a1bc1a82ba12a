package modeling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPick_AlwaysIncludesEssentialFields(t *testing.T) {
	reg := testRegistry(t)
	for _, typeName := range reg.List() {
		for _, fields := range [][]string{nil, {"gender"}, {"status", "nope"}} {
			picked, err := Pick(reg, typeName, fields)
			require.NoError(t, err)
			for _, essential := range EssentialFields {
				assert.True(t, picked.Descriptor.HasField(essential), "%s missing %s", typeName, essential)
			}
		}
	}
}

func TestPick_DropsUnknownFields(t *testing.T) {
	reg := testRegistry(t)
	picked, err := Pick(reg, "Patient", []string{"gender", "shoe_size", "gender", "aura"})
	require.NoError(t, err)

	assert.Equal(t, []string{"created_at", "gender", "id", "resource_type", "updated_at"}, picked.Descriptor.FieldNames())
	assert.Equal(t, []string{"aura", "shoe_size"}, picked.Dropped)
	assert.Equal(t, "Patient", picked.Descriptor.ResourceType)
}

func TestPick_UnknownType(t *testing.T) {
	reg := testRegistry(t)
	_, err := Pick(reg, "NotARealType", []string{"x"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestProject_Containment(t *testing.T) {
	r := Resource{
		"id":            "p1",
		"resource_type": "Patient",
		"full_name":     "Ada",
		"gender":        "female",
		"address":       map[string]interface{}{"city": "London"},
	}
	fields := []string{"gender", "missing"}

	out, err := Project(r, fields)
	require.NoError(t, err)

	allowed := map[string]bool{"gender": true, "missing": true}
	for _, e := range EssentialFields {
		allowed[e] = true
	}
	for k := range out {
		assert.True(t, allowed[k], "unexpected key %s", k)
	}
	assert.Equal(t, Resource{"id": "p1", "resource_type": "Patient", "gender": "female"}, out)
	assert.Contains(t, r, "full_name")
}

func TestProject_CopiesNestedValues(t *testing.T) {
	r := Resource{"id": "p1", "address": map[string]interface{}{"city": "London"}}
	out, err := Project(r, []string{"address"})
	require.NoError(t, err)

	out["address"].(map[string]interface{})["city"] = "Paris"
	assert.Equal(t, "London", r["address"].(map[string]interface{})["city"])
}

func TestValidateSubset(t *testing.T) {
	reg := testRegistry(t)

	vr, err := ValidateSubset(reg, "Patient", map[string]interface{}{"gender": "female"}, []string{"gender"})
	require.NoError(t, err)
	assert.True(t, vr.Valid, "full_name is outside the subset and must not be required")

	vr, err = ValidateSubset(reg, "Patient", map[string]interface{}{"full_name": 3}, []string{"full_name"})
	require.NoError(t, err)
	assert.False(t, vr.Valid)
	assert.Len(t, vr.Issues, 1)

	_, err = ValidateSubset(reg, "NotARealType", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}
