package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgType_CanBeRepresentedAs(t *testing.T) {
	all := append(append([]ArgType{}, PrimitiveArgTypes...), CallbackType, LibFunctionType, AnyType)

	for _, from := range all {
		for _, to := range all {
			want := from == to || to == AnyType
			assert.Equal(t, want, from.CanBeRepresentedAs(to), "%s -> %s", from, to)
		}
	}
}

func TestArgType_TextRoundTrip(t *testing.T) {
	for _, argType := range []ArgType{NumberType, StringType, ArrayType, ObjectType, CallbackType, LibFunctionType, AnyType} {
		text, err := argType.MarshalText()
		require.NoError(t, err)

		var out ArgType
		require.NoError(t, out.UnmarshalText(text))
		assert.Equal(t, argType, out)
	}

	_, err := ParseArgType("bogus")
	assert.Error(t, err)
}

func TestFunctionArgument_SetValue(t *testing.T) {
	tests := []struct {
		name    string
		argType ArgType
		val     ArgVal
		wantErr bool
	}{
		{"number into number", NumberType, NewNumber("1"), false},
		{"string into any", AnyType, NewString("'a'"), false},
		{"variable into any", AnyType, NewVariable("ret_val_fs_0"), false},
		{"variable into string", StringType, NewVariable("ret_val_fs_0"), true},
		{"callback into object", ObjectType, NewCallback(Callback{}), true},
		{"lib function into lib function", LibFunctionType, NewLibFunction("fs.stat"), false},
		{"callback var into callback", CallbackType, NewCallbackVar("cb_0_1_arg_0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arg := NewFunctionArgument(tt.argType)
			err := arg.SetValue(tt.val)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrArgTypeValMismatch)
				assert.Nil(t, arg.Value)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, arg.Value)
			assert.True(t, tt.val.Equal(*arg.Value))
		})
	}
}

func TestFunctionArgument_RenderUnset(t *testing.T) {
	_, err := NewFunctionArgument(NumberType).Render()
	assert.ErrorIs(t, err, ErrArgValNotSet)
}

func TestFunctionSignature_ShapeKey(t *testing.T) {
	sig := NewSignature(AbstractShape{StringType, ObjectType, CallbackType})

	key := sig.Shape().Key()
	assert.Equal(t, ShapeKey("string,object,callback-function"), key)

	shape, err := key.Shape()
	require.NoError(t, err)
	assert.Equal(t, sig.Shape(), shape)

	empty, err := ShapeKey("").Shape()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFunctionSignature_TagCallbacks(t *testing.T) {
	sig := NewSignature(AbstractShape{StringType, CallbackType, CallbackType})
	require.NoError(t, sig.Args[0].SetValue(NewString("'a'")))
	require.NoError(t, sig.Args[1].SetValue(NewCallback(Callback{Sig: NewSignature(AbstractShape{AnyType, AnyType})})))
	require.NoError(t, sig.Args[2].SetValue(NewCallbackVar("cb_var")))

	assert.Equal(t, []int{1}, sig.CallbackPositions())
	assert.True(t, sig.HasCallback())

	sig.TagCallbacks("3_pcid1_pos2")

	cb, ok := sig.CallbackAt(1)
	require.True(t, ok)
	require.NotNil(t, cb.CbID)
	assert.Equal(t, "3_pcid1_pos2", *cb.CbID)
	assert.Equal(t, 1, *cb.ArgPos)
	assert.Equal(t, "cb_3_pcid1_pos2_1", cb.Name())
	assert.Equal(t, []string{"cb_3_pcid1_pos2_1_arg_0", "cb_3_pcid1_pos2_1_arg_1"}, cb.ParamNames())

	_, ok = sig.CallbackAt(2)
	assert.False(t, ok)

	rendered, err := sig.Render()
	require.NoError(t, err)
	assert.Equal(t, "'a', cb_3_pcid1_pos2_1, cb_var", rendered)
}

func TestFunctionSignature_CloneIsDeep(t *testing.T) {
	sig := NewSignature(AbstractShape{CallbackType})
	require.NoError(t, sig.Args[0].SetValue(NewCallback(Callback{Sig: NewSignature(AbstractShape{AnyType})})))

	clone := sig.Clone()
	clone.TagCallbacks("7")

	orig, _ := sig.CallbackAt(0)
	assert.Nil(t, orig.CbID)
	assert.False(t, sig.Equal(clone))
}

func TestUniqID(t *testing.T) {
	parent := NodeID(1)
	pos := 2

	assert.Equal(t, "0", UniqID(0, nil, nil))
	assert.Equal(t, "3_pcid1_pos2", UniqID(3, &parent, &pos))
	assert.Equal(t, "ret_val_fs_extra_0", ReturnVarName("fs-extra", "0"))
	assert.Equal(t, "_7zip", LibVarName("7zip"))
}

func TestTestLoc_File(t *testing.T) {
	loc := TestLoc{Index: 4, Dir: "out/test", Prefix: "test"}
	assert.Equal(t, Path("out/test/test4.js"), loc.File())
	assert.Equal(t, "test4.js", loc.Name())
}
