package wait

import "time"

// SetSettleGranularity shortens the page-settle read spacing for a test.
func SetSettleGranularity(d time.Duration) (restore func()) {
	old := settleGranularity
	settleGranularity = d
	return func() { settleGranularity = old }
}
