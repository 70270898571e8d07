package conf

// Shared constants for the label space and sampling policy.
const (
	// NumClasses is the number of species in the label space.
	NumClasses = 24

	// NumSongtypeClasses is the size of the joint species+songtype label
	// space. Two species vocalize with more than one songtype, so the joint
	// space carries two extra slots.
	NumSongtypeClasses = NumClasses + 2

	// DefaultClipDuration is the fixed length of every source recording in
	// seconds.
	DefaultClipDuration = 60.0

	// OffsetGranularity is the step of the random window offset grid in
	// seconds.
	OffsetGranularity = 0.1
)
