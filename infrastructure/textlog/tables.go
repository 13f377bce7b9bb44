package textlog

import (
	"strconv"
	"strings"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

var debugModes = []string{
	"NONE", "CYCLETIME", "BATTERY", "GYRO_FILTERED", "ACCELEROMETER", "PIDLOOP",
	"GYRO_SCALED", "RC_INTERPOLATION", "ANGLERATE", "ESC_SENSOR", "SCHEDULER",
	"STACK", "ESC_SENSOR_RPM", "ESC_SENSOR_TMP", "ALTITUDE", "FFT", "FFT_TIME",
	"FFT_FREQ", "RX_FRSKY_SPI", "RX_SFHSS_SPI", "GYRO_RAW", "DUAL_GYRO_RAW",
	"DUAL_GYRO_DIFF", "MAX7456_SIGNAL", "MAX7456_SPICLOCK", "SBUS", "FPORT",
	"RANGEFINDER", "RANGEFINDER_QUALITY", "LIDAR_TF", "ADC_INTERNAL",
	"RUNAWAY_TAKEOFF", "SDIO", "CURRENT_SENSOR", "USB", "SMARTAUDIO", "RTH",
	"ITERM_RELAX", "ACRO_TRAINER", "RC_SMOOTHING", "RX_SIGNAL_LOSS",
	"RC_SMOOTHING_RATE", "ANTI_GRAVITY", "DYN_LPF", "RX_SPEKTRUM_SPI",
	"DSHOT_RPM_TELEMETRY", "RPM_FILTER", "D_MIN", "AC_CORRECTION", "AC_ERROR",
	"DUAL_GYRO_SCALED", "DSHOT_RPM_ERRORS", "CRSF_LINK_STATISTICS_UPLINK",
	"CRSF_LINK_STATISTICS_PWR", "CRSF_LINK_STATISTICS_DOWN", "BARO",
	"GPS_RESCUE_THROTTLE_PID", "DYN_IDLE", "FF_LIMIT", "FF_INTERPOLATED",
	"BLACKBOX_OUTPUT", "GYRO_SAMPLE", "RX_TIMING",
}

var pwmProtocols = []string{
	"PWM", "ONESHOT125", "ONESHOT42", "MULTISHOT", "BRUSHED",
	"DSHOT150", "DSHOT300", "DSHOT600", "PROSHOT1000", "DISABLED",
}

// Bit positions of the "features" header.
var featureFlags = map[int]string{
	0:  "RX_PPM",
	2:  "INFLIGHT_ACC_CAL",
	3:  "RX_SERIAL",
	4:  "MOTOR_STOP",
	5:  "SERVO_TILT",
	6:  "SOFTSERIAL",
	7:  "GPS",
	9:  "RANGEFINDER",
	10: "TELEMETRY",
	12: "3D",
	13: "RX_PARALLEL_PWM",
	14: "RX_MSP",
	15: "RSSI_ADC",
	16: "LED_STRIP",
	17: "DASHBOARD",
	18: "OSD",
	20: "CHANNEL_FORWARDING",
	21: "TRANSPONDER",
	22: "AIRMODE",
	25: "RX_SPI",
	27: "ESC_SENSOR",
	28: "ANTI_GRAVITY",
	29: "DYNAMIC_FILTER",
}

// Bit positions of the "disabled_fields" header.
var disabledFieldFlags = map[int]string{
	0:  "PID",
	1:  "RC_COMMANDS",
	2:  "SETPOINT",
	3:  "BATTERY",
	4:  "MAG",
	5:  "ALTITUDE",
	6:  "RSSI",
	7:  "GYRO",
	8:  "ACC",
	9:  "DEBUG",
	10: "MOTOR",
	11: "GPS",
	12: "RPM",
}

// lookupName maps a numeric header value to its name. Non-numeric values
// pass through unchanged.
func lookupName(names []string, value string) string {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return value
	}
	if n >= 0 && n < len(names) {
		return names[n]
	}
	return "UNKNOWN(" + strconv.Itoa(n) + ")"
}

// flagNames expands a decimal bitmask into names in bit order. Unnamed bits
// are dropped.
func flagNames(flags map[int]string, value string) []string {
	mask, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return nil
	}
	var names []string
	for bit := range 32 {
		if mask&(1<<bit) == 0 {
			continue
		}
		if name, ok := flags[bit]; ok {
			names = append(names, name)
		}
	}
	return names
}

var unitPrefixes = []struct {
	prefix string
	unit   entities.Unit
}{
	{"accSmooth", entities.UnitAcceleration},
	{"accADC", entities.UnitAcceleration},
	{"baroAlt", entities.UnitAltitude},
	{"GPS_altitude", entities.UnitAltitude},
	{"amperage", entities.UnitAmperage},
	{"vbat", entities.UnitVoltage},
	{"gyroADC", entities.UnitRotation},
	{"gyroUnfilt", entities.UnitRotation},
	{"GPS_coord", entities.UnitGpsCoordinate},
	{"GPS_ground_course", entities.UnitGpsHeading},
	{"GPS_speed", entities.UnitVelocity},
	{"flightModeFlags", entities.UnitFlightMode},
	{"stateFlags", entities.UnitState},
	{"failsafePhase", entities.UnitFailsafePhase},
	{"rxSignalReceived", entities.UnitBoolean},
	{"rxFlightChannelsValid", entities.UnitBoolean},
}

func unitFor(name string) entities.Unit {
	for _, p := range unitPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.unit
		}
	}
	return entities.UnitUnitless
}
