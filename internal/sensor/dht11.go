package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIIODevice is where the kernel dht11 overlay usually registers.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// DHT11 reads a DHT11 through the Linux IIO dht11 driver. The driver
// reports millidegrees and milli-percent and returns EIO whenever the
// sensor misses a handshake, which happens a lot.
type DHT11 struct {
	dir string
}

func NewDHT11(dir string) *DHT11 {
	if dir == "" {
		dir = DefaultIIODevice
	}
	return &DHT11{dir: dir}
}

func (d *DHT11) Climate() (humidity, temperature float64, err error) {
	temperature, err = readMilli(filepath.Join(d.dir, "in_temp_input"))
	if err != nil {
		return 0, 0, err
	}
	humidity, err = readMilli(filepath.Join(d.dir, "in_humidityrelative_input"))
	if err != nil {
		return 0, 0, err
	}
	return humidity, temperature, nil
}

func readMilli(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return float64(v) / 1000, nil
}
