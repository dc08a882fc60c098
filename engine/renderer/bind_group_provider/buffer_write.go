package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// End returns the byte offset one past the last byte written.
//
// Returns:
//   - uint64: Offset plus the length of Data
func (w BufferWrite) End() uint64 {
	return w.Offset + uint64(len(w.Data))
}

// Fits reports whether the write lies inside the target buffer. Writes to a binding without
// a buffer never fit.
//
// Returns:
//   - bool: true if the provider holds a buffer at Binding large enough for the write
func (w BufferWrite) Fits() bool {
	if w.Provider == nil || w.Provider.Buffer(w.Binding) == nil {
		return false
	}
	return w.End() <= w.Provider.BufferSize(w.Binding)
}
