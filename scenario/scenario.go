package scenario

// Scenario is the on-disk description of a network and the flows to
// schedule on it. Optional numbers are pointers; a missing value is left
// for the endpoint defaults or the solver.
type Scenario struct {
	Name             string        `toml:"name" yaml:"name"`
	PacketUpperBound int           `toml:"packet_upper_bound" yaml:"packet_upper_bound"`
	Devices          []DeviceEntry `toml:"devices" yaml:"devices"`
	Switches         []SwitchEntry `toml:"switches" yaml:"switches"`
	Links            []LinkEntry   `toml:"links" yaml:"links"`
	Flows            []FlowEntry   `toml:"flows" yaml:"flows"`
}

// DeviceEntry maps to one [[devices]] item.
type DeviceEntry struct {
	Name             string   `toml:"name" yaml:"name"`
	Periodicity      *float64 `toml:"periodicity" yaml:"periodicity"`
	FirstSendingTime *float64 `toml:"first_sending_time" yaml:"first_sending_time"`
	PacketSize       *float64 `toml:"packet_size" yaml:"packet_size"`
	MaxLatency       *float64 `toml:"max_latency" yaml:"max_latency"`
}

// SwitchEntry maps to one [[switches]] item.
type SwitchEntry struct {
	Name string `toml:"name" yaml:"name"`
}

// LinkEntry maps to one [[links]] item. A missing cycle_start lets the
// solver place the cycle of the ports on this link.
type LinkEntry struct {
	A             string   `toml:"a" yaml:"a"`
	B             string   `toml:"b" yaml:"b"`
	Speed         float64  `toml:"speed" yaml:"speed"`
	CycleStart    *float64 `toml:"cycle_start" yaml:"cycle_start"`
	CycleDuration float64  `toml:"cycle_duration" yaml:"cycle_duration"`
	Automated     bool     `toml:"automated" yaml:"automated"`
	Hypercycle    float64  `toml:"hypercycle" yaml:"hypercycle"`
}

const (
	TypeUnicast          = "unicast"
	TypePublishSubscribe = "publish_subscribe"
)

// FlowEntry maps to one [[flows]] item. Unicast flows list their route in
// Path from source to destination, or name only From and To and take the
// fastest route; publish-subscribe flows list tree edges in Hops, parents
// before children.
type FlowEntry struct {
	Name             string     `toml:"name" yaml:"name"`
	Type             string     `toml:"type" yaml:"type"`
	Path             []string   `toml:"path,omitempty" yaml:"path,omitempty"`
	From             string     `toml:"from,omitempty" yaml:"from,omitempty"`
	To               string     `toml:"to,omitempty" yaml:"to,omitempty"`
	Hops             []HopEntry `toml:"hops,omitempty" yaml:"hops,omitempty"`
	FirstSendingTime *float64   `toml:"first_sending_time" yaml:"first_sending_time"`
	Periodicity      *float64   `toml:"periodicity" yaml:"periodicity"`
	PacketSize       *float64   `toml:"packet_size" yaml:"packet_size"`
	MaxLatency       *float64   `toml:"max_latency" yaml:"max_latency"`
	MaxJitter        *float64   `toml:"max_jitter" yaml:"max_jitter"`
	Priority         *int       `toml:"priority" yaml:"priority"`
}

type HopEntry struct {
	From string `toml:"from" yaml:"from"`
	To   string `toml:"to" yaml:"to"`
}
