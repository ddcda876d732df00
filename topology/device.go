package topology

// Device is an end station. Its values are the defaults of flows it sends.
type Device struct {
	name             string
	Periodicity      float64
	FirstSendingTime float64
	PacketSize       float64
	MaxLatency       float64
}

func NewDevice(name string, periodicity, firstSendingTime, packetSize, maxLatency float64) *Device {
	return &Device{
		name:             name,
		Periodicity:      periodicity,
		FirstSendingTime: firstSendingTime,
		PacketSize:       packetSize,
		MaxLatency:       maxLatency,
	}
}

func (d *Device) Name() string                     { return d.name }
func (d *Device) DefaultPeriodicity() float64      { return d.Periodicity }
func (d *Device) DefaultFirstSendingTime() float64 { return d.FirstSendingTime }
func (d *Device) DefaultPacketSize() float64       { return d.PacketSize }
func (d *Device) DefaultMaxLatency() float64       { return d.MaxLatency }
