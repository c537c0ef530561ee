package comfort

// Bounds are the inclusive comfortable ranges for the desk.
type Bounds struct {
	TempMin     float64
	TempMax     float64
	HumidityMin float64
	HumidityMax float64
}

func DefaultBounds() Bounds {
	return Bounds{TempMin: 20, TempMax: 25, HumidityMin: 30, HumidityMax: 60}
}

type Result struct {
	TempOK     bool
	HumidityOK bool
}

// Warnings is the number of out-of-range readings.
func (r Result) Warnings() int {
	n := 0
	if !r.TempOK {
		n++
	}
	if !r.HumidityOK {
		n++
	}
	return n
}

// Check returns false when either reading is missing.
func (b Bounds) Check(temperature, humidity *float64) (Result, bool) {
	if temperature == nil || humidity == nil {
		return Result{}, false
	}
	return Result{
		TempOK:     *temperature >= b.TempMin && *temperature <= b.TempMax,
		HumidityOK: *humidity >= b.HumidityMin && *humidity <= b.HumidityMax,
	}, true
}
