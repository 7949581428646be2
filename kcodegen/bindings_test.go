package kcodegen

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestRewriteBindings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "assignment", body: "out0 = in2;", want: "cb_out0 = cb_in2;"},
		{name: "expression", body: "out0 = in0*2 + max(in1, 0)", want: "cb_out0 = cb_in0*2 + max(cb_in1, 0)"},
		{name: "comments stay verbatim", body: "out0 = in0 // copy in0", want: "cb_out0 = cb_in0 // copy in0"},
		{name: "other identifiers", body: "xin0 := in01 + in0x", want: "xin0 := in01 + in0x"},
		{name: "strings", body: `out0 = "in0"`, want: `cb_out0 = "in0"`},
		{name: "whitespace kept", body: "\n    out0 =\tin1;\n", want: "\n    cb_out0 =\tcb_in1;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewriteBindings(tt.body, 3, 1)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("leading zeros are not bindings", func(t *testing.T) {
		got, err := RewriteBindings("out0 = in01", 1, 1)
		assert.NoError(t, err)
		assert.Equal(t, "cb_out0 = in01", got)
	})

	t.Run("output out of range", func(t *testing.T) {
		_, err := RewriteBindings("out1 = in0", 1, 1)
		assert.IsError(t, err, ErrUnknownBinding)
	})

	t.Run("input on a kernel without inputs", func(t *testing.T) {
		_, err := RewriteBindings("out0 = in0", 0, 1)
		assert.IsError(t, err, ErrUnknownBinding)
	})

	t.Run("scan errors", func(t *testing.T) {
		_, err := RewriteBindings("out0 = `unterminated", 1, 1)
		assert.Error(t, err)
	})
}

func TestIndentBody(t *testing.T) {
	assert.Equal(t, "\tcb_out0 = cb_in2;", indentBody("\n        cb_out0 = cb_in2;\n    "))
	assert.Equal(t, "\tif x > 0 {\n\t\ty = x\n\t}", indentBody("  if x > 0 {\n  \ty = x\n  }\n"))
	assert.Equal(t, "\ta\n\n\tb", indentBody("  a\n\n  b"))
	assert.Equal(t, "", indentBody("   \n\t\n"))
}
