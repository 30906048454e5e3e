package expression

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		ctx      *Context
		want     float64
		constant bool
	}{
		{name: "number", text: "12.5", want: 12.5},
		{name: "empty", text: "  ", want: 0},
		{name: "arithmetic", text: "2 * 3 + 1", want: 7},
		{name: "anim time", text: "query.anim_time * 2", ctx: &Context{AnimTime: 4}, want: 8},
		{name: "custom query", text: "query.speed", ctx: &Context{Values: map[string]float64{"speed": 0.75}}, want: 0.75},
		{name: "math module", text: "math.sin(math.pi / 2) * 10", want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if v.IsConstant() != tt.constant {
				t.Errorf("IsConstant = %v, want %v", v.IsConstant(), tt.constant)
			}
			if got := v.Get(tt.ctx); !mgl64.FloatEqualThreshold(got, tt.want, 1e-9) {
				t.Errorf("Get = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("1 +* 2"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestExpressionTracksContext(t *testing.T) {
	e, err := Compile("math.cos(query.life_time)")
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext()
	for _, lt := range []float64{0, 1, 2} {
		ctx.LifeTime = lt
		if got := e.Get(ctx); !mgl64.FloatEqualThreshold(got, math.Cos(lt), 1e-9) {
			t.Errorf("life_time %v: got %v", lt, got)
		}
	}
}

func TestConstantAndScalar(t *testing.T) {
	if !Constant(1).IsConstant() {
		t.Error("Constant should be constant")
	}
	if Scalar(1).IsConstant() {
		t.Error("Scalar should not be constant")
	}
}
