package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacs/hacs/internal/platform/modeling"
)

func TestRegister(t *testing.T) {
	reg := modeling.NewRegistry()
	require.NoError(t, Register(reg))

	assert.Equal(t, Names(), reg.List())
	assert.True(t, reg.Has(TypePatient))
	assert.True(t, reg.Has(TypeMemoryBlock))
}

func TestDescriptors_CarryEssentialFields(t *testing.T) {
	for _, d := range Descriptors() {
		for _, f := range modeling.EssentialFields {
			info, ok := d.Fields[f]
			if assert.Truef(t, ok, "%s missing %s", d.ResourceType, f) {
				assert.Falsef(t, info.Required, "%s.%s must not be required", d.ResourceType, f)
			}
		}
	}
}

func TestDescriptors_AreCopies(t *testing.T) {
	first := Descriptors()
	first[0].Fields["injected"] = modeling.FieldInfo{Type: modeling.TypeString}

	second := Descriptors()
	assert.False(t, second[0].HasField("injected"))
}

func TestCatalog_InstantiatesPatient(t *testing.T) {
	reg := modeling.NewRegistry()
	require.NoError(t, Register(reg))

	inst, err := modeling.Instantiate(reg, TypePatient, map[string]interface{}{
		"full_name":            "Ada Lovelace",
		"birth_date":           "1815-12-10",
		"managingOrganization": "Organization/o1",
	})
	require.NoError(t, err)
	require.True(t, inst.Validation.Valid, inst.Validation.Issues)
	assert.Equal(t, TypePatient, inst.Resource.Type())
	assert.NotEmpty(t, inst.Resource.ID())
}

func TestDescriptors_StatusDescriptions(t *testing.T) {
	byType := map[string]modeling.SchemaDescriptor{}
	for _, d := range Descriptors() {
		byType[d.ResourceType] = d
	}

	assert.Equal(t, "planned | in-progress | finished | cancelled", byType[TypeEncounter].Fields["status"].Description)
	assert.Equal(t, "registered | preliminary | final | amended", byType[TypeObservation].Fields["status"].Description)
	assert.Contains(t, byType[TypeMemoryBlock].Fields["memory_type"].Description, MemoryProcedural)
}

func TestCatalog_InstantiatesMemoryBlock(t *testing.T) {
	reg := modeling.NewRegistry()
	require.NoError(t, Register(reg))

	inst, err := modeling.Instantiate(reg, TypeMemoryBlock, map[string]interface{}{
		"memory_type": MemoryEpisodic,
		"content":     "Patient prefers morning appointments",
	})
	require.NoError(t, err)
	require.True(t, inst.Validation.Valid, inst.Validation.Issues)
	assert.Equal(t, MemoryEpisodic, inst.Resource["memory_type"])
}
