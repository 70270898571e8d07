package metrics

// AverageMeter tracks a running weighted average across an epoch.
type AverageMeter struct {
	sum   float64
	count float64
}

// Update adds a value observed over n items.
func (m *AverageMeter) Update(value float64, n int) {
	m.sum += value * float64(n)
	m.count += float64(n)
}

// Average returns the running mean, zero before any update.
func (m *AverageMeter) Average() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / m.count
}

// Reset clears the meter for the next epoch.
func (m *AverageMeter) Reset() {
	m.sum, m.count = 0, 0
}
