package math

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	if got := v.Length(); got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec2Cross(t *testing.T) {
	x := Vec2{1, 0}
	y := Vec2{0, 1}
	if got := x.Cross(y); got != 1 {
		t.Errorf("Vec2.Cross() = %v, want 1", got)
	}
	if got := y.Cross(x); got != -1 {
		t.Errorf("Vec2.Cross() reversed = %v, want -1", got)
	}
}

func TestVec2Normalize(t *testing.T) {
	n := Vec2{3, 4}.Normalize()
	if !approx(n.Length(), 1) {
		t.Errorf("Vec2.Normalize().Length() = %v, want 1", n.Length())
	}
	if got := (Vec2{}).Normalize(); got != (Vec2{}) {
		t.Errorf("zero Vec2.Normalize() = %v, want zero", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{1, 2, 2}.Normalize()
	if !approx(n.Length(), 1) {
		t.Errorf("Vec3.Normalize().Length() = %v, want 1", n.Length())
	}
	if !(Vec3{}).Normalize().IsZero() {
		t.Error("zero Vec3.Normalize() should stay zero")
	}
}

func TestVec3ProjectOnPlane(t *testing.T) {
	up := Vec3{0, 1, 0}
	v := Vec3{3, -4, 5}

	normal := v.Project(up)
	tangent := v.ProjectOnPlane(up)

	if normal != (Vec3{0, -4, 0}) {
		t.Errorf("Project() = %v, want {0 -4 0}", normal)
	}
	if tangent != (Vec3{3, 0, 5}) {
		t.Errorf("ProjectOnPlane() = %v, want {3 0 5}", tangent)
	}
	if normal.Add(tangent) != v {
		t.Error("normal and tangential parts should sum to the original vector")
	}
}

func TestVec3Reflect(t *testing.T) {
	got := Vec3{1, -2, 0}.Reflect(Vec3{0, 1, 0})
	want := Vec3{1, 2, 0}
	if got != want {
		t.Errorf("Vec3.Reflect() = %v, want %v", got, want)
	}
}

func TestVec3Midpoint(t *testing.T) {
	got := Vec3{0, 0, 0}.Midpoint(Vec3{2, 4, -6})
	want := Vec3{1, 2, -3}
	if got != want {
		t.Errorf("Vec3.Midpoint() = %v, want %v", got, want)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("expected finite vector")
	}
	if (Vec3{math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN component should not be finite")
	}
	if (Vec3{0, math.Inf(1), 0}).IsFinite() {
		t.Error("Inf component should not be finite")
	}
}

func TestVec3ArrayRoundTrip(t *testing.T) {
	v := FromArray([3]float64{1.5, -2, 3})
	if v != (Vec3{1.5, -2, 3}) {
		t.Errorf("FromArray() = %v", v)
	}
	if v.Array() != [3]float64{1.5, -2, 3} {
		t.Errorf("Array() = %v", v.Array())
	}
}
