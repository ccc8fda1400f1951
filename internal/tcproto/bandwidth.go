package tcproto

// BandwidthSample is a point-in-time counter reading plus the instantaneous
// rates derived from the prior sample. The first sample for an interface
// always carries zero rates -- there is no prior reading to difference
// against.
type BandwidthSample struct {
	RxBytes        uint64  `json:"rx_bytes"`
	TxBytes        uint64  `json:"tx_bytes"`
	RxPackets      uint64  `json:"rx_packets"`
	TxPackets      uint64  `json:"tx_packets"`
	RxErrors       uint64  `json:"rx_errors"`
	TxErrors       uint64  `json:"tx_errors"`
	RxDropped      uint64  `json:"rx_dropped"`
	TxDropped      uint64  `json:"tx_dropped"`
	WallTsS        float64 `json:"wall_ts_s"`
	RxBytesPerSec  float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec  float64 `json:"tx_bytes_per_sec"`
}

// DeriveRates returns a copy of curr with RxBytesPerSec/TxBytesPerSec
// computed against prev over the elapsed wall-clock interval. Counter
// wraparound (curr < prev) is treated as "start fresh": rate 0 for this
// tick rather than a negative or huge rate.
func DeriveRates(prev, curr BandwidthSample) BandwidthSample {
	dt := curr.WallTsS - prev.WallTsS
	if dt <= 0 {
		curr.RxBytesPerSec = 0
		curr.TxBytesPerSec = 0
		return curr
	}
	if curr.RxBytes < prev.RxBytes {
		curr.RxBytesPerSec = 0
	} else {
		curr.RxBytesPerSec = float64(curr.RxBytes-prev.RxBytes) / dt
	}
	if curr.TxBytes < prev.TxBytes {
		curr.TxBytesPerSec = 0
	} else {
		curr.TxBytesPerSec = float64(curr.TxBytes-prev.TxBytes) / dt
	}
	return curr
}
