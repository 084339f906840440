package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"SUM", "PRODUCT", "DELTA", "QUOTIENT", "MODULO", "POWER", "ABS"}, c.ListNames())
	assert.Equal(t, 7, c.Len())
}

func TestDescribeEveryListedName(t *testing.T) {
	c := Default()

	for _, name := range c.ListNames() {
		t.Run(name, func(t *testing.T) {
			d, err := c.Describe(name)
			require.NoError(t, err)
			assert.Equal(t, name, d.Name)
			assert.NotEmpty(t, d.Description)
			assert.NotZero(t, d.Op)

			schema, err := c.Schema(name)
			require.NoError(t, err)
			assert.NotNil(t, schema)
		})
	}
}

func TestDescribeUnknown(t *testing.T) {
	c := Default()

	for _, name := range []string{"", "SUBTRACT", "sum2", "list_tools"} {
		_, err := c.Describe(name)
		assert.True(t, errors.Is(err, ErrUnknownTool), "name %q", name)

		_, err = c.Schema(name)
		assert.True(t, errors.Is(err, ErrUnknownTool), "name %q", name)
	}
}

func TestDescribeCanonicalizesName(t *testing.T) {
	c := Default()

	d, err := c.Describe("  delta ")
	require.NoError(t, err)
	assert.Equal(t, "DELTA", d.Name)
	assert.Equal(t, Reliable, d.Reliability)
}

func TestDescribeReturnsCopy(t *testing.T) {
	c := Default()

	d, err := c.Describe("SUM")
	require.NoError(t, err)
	d.Params[0].Name = "mutated"

	again, err := c.Describe("SUM")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Params[0].Name)
}

func TestListNamesReturnsCopy(t *testing.T) {
	c := Default()

	names := c.ListNames()
	names[0] = "X"
	assert.Equal(t, "SUM", c.ListNames()[0])
}

func TestReliabilityClasses(t *testing.T) {
	c := Default()

	for _, name := range c.ListNames() {
		d, err := c.Describe(name)
		require.NoError(t, err)
		want := name == "SUM" || name == "PRODUCT"
		assert.Equal(t, want, d.IsUnreliable(), name)
	}
}

func TestNewRejectsInvalidDescriptors(t *testing.T) {
	valid := ToolDescriptor{Name: "SUM", Reliability: Unreliable, Params: binary("a", "b"), Op: OpSum}

	t.Run("duplicate after canonicalization", func(t *testing.T) {
		dup := valid
		dup.Name = " sum"
		_, err := New(valid, dup)
		assert.Error(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		bad := valid
		bad.Name = " "
		_, err := New(bad)
		assert.Error(t, err)
	})

	t.Run("bad reliability", func(t *testing.T) {
		bad := valid
		bad.Reliability = "SOMETIMES"
		_, err := New(bad)
		assert.Error(t, err)
	})

	t.Run("missing op", func(t *testing.T) {
		bad := valid
		bad.Op = 0
		_, err := New(bad)
		assert.Error(t, err)
	})
}

func TestArgumentSchema(t *testing.T) {
	c := Default()
	schema, err := c.Schema("SUM")
	require.NoError(t, err)

	tests := []struct {
		name  string
		args  []interface{}
		valid bool
	}{
		{"two numbers", []interface{}{2, 3.5}, true},
		{"too few", []interface{}{2}, false},
		{"too many", []interface{}{1, 2, 3}, false},
		{"string argument", []interface{}{"2", 3}, false},
		{"null argument", []interface{}{nil, 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.Validate(gojsonschema.NewGoLoader(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid())
		})
	}
}

func TestDescriptorText(t *testing.T) {
	d, err := Default().Describe("ABS")
	require.NoError(t, err)

	assert.Equal(t, "ABS: reliable absolute(a). Takes [a]. Arguments: [a:number]. Reliability: RELIABLE.", d.Text())
	assert.Equal(t, []ToolParameter{{Name: "a", Type: ParamNumber}}, d.Params)
	assert.Equal(t, 1, d.Arity())
}
