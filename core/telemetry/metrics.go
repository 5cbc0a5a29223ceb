package telemetry

import "fmt"

// MetricKind is the closed set of dashboard telemetry nodes.
type MetricKind int

const (
	MetricFPS MetricKind = iota
	MetricLatency
	MetricThermal
	MetricProximity
	MetricServo
	MetricDetection
)

var metricKinds = []MetricKind{MetricFPS, MetricLatency, MetricThermal, MetricProximity, MetricServo, MetricDetection}

func (k MetricKind) String() string {
	switch k {
	case MetricFPS:
		return "fps"
	case MetricLatency:
		return "latency"
	case MetricThermal:
		return "thermal"
	case MetricProximity:
		return "proximity"
	case MetricServo:
		return "servo"
	case MetricDetection:
		return "detection"
	default:
		return fmt.Sprintf("metric(%d)", int(k))
	}
}

func (k MetricKind) Label() string {
	switch k {
	case MetricFPS:
		return "Camera FPS"
	case MetricLatency:
		return "Latency"
	case MetricThermal:
		return "Thermal"
	case MetricProximity:
		return "Proximity"
	case MetricServo:
		return "Servo Angle"
	case MetricDetection:
		return "ML Confidence"
	default:
		return k.String()
	}
}

func (k MetricKind) Unit() string {
	switch k {
	case MetricFPS:
		return "fps"
	case MetricLatency:
		return "ms"
	case MetricThermal:
		return "°C"
	case MetricProximity:
		return "m"
	case MetricServo:
		return "°"
	case MetricDetection:
		return "%"
	default:
		return ""
	}
}

func (k MetricKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MetricKind) UnmarshalText(b []byte) error {
	for _, known := range metricKinds {
		if known.String() == string(b) {
			*k = known
			return nil
		}
	}
	return fmt.Errorf("unknown metric kind %q", string(b))
}

// Node is one rendered telemetry value.
type Node struct {
	Kind    MetricKind `json:"kind"`
	Label   string     `json:"label"`
	Value   float64    `json:"value"`
	Unit    string     `json:"unit"`
	IsAlert bool       `json:"is_alert"`
}

// Nodes projects a snapshot onto the dashboard nodes. Alert nodes are the
// ones an alert tick moves into their alarm range.
func (s Snapshot) Nodes() []Node {
	out := make([]Node, 0, len(metricKinds))
	for _, k := range metricKinds {
		n := Node{Kind: k, Label: k.Label(), Unit: k.Unit()}
		switch k {
		case MetricFPS:
			n.Value = float64(s.FPS)
		case MetricLatency:
			n.Value = float64(s.LatencyMS)
		case MetricThermal:
			n.Value = s.ThermalC
			n.IsAlert = s.HumanDetected
		case MetricProximity:
			n.Value = s.DistanceM
			n.IsAlert = s.HumanDetected
		case MetricServo:
			n.Value = float64(s.ServoAngle)
		case MetricDetection:
			n.Value = s.DetectionProb * 100
			n.IsAlert = s.HumanDetected
		}
		out = append(out, n)
	}
	return out
}
