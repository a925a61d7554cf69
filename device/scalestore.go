package device

import (
	"github.com/stanley-fork/bluepad32/property"
	"github.com/stanley-fork/bluepad32/quadrature"
)

// PropertyScaleStore adapts the property table to the core's ScaleStore
// interface, persisting the calibration value under the mouse.scale
// property.
type PropertyScaleStore struct {
	Table *property.Table
}

func (s PropertyScaleStore) LoadScaleFactor() (float32, error) {
	// The table already falls back to the default on storage trouble,
	// so a read never fails here.
	return s.Table.Get(property.MouseScale).F32, nil
}

func (s PropertyScaleStore) SaveScaleFactor(f float32) error {
	return s.Table.Set(property.MouseScale, property.Value{F32: f})
}

var _ quadrature.ScaleStore = PropertyScaleStore{}
