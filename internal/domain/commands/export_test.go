package commands

// SetBatchIDGenerator replaces the batch id source for testing.
func (it *PipelineCommand) SetBatchIDGenerator(generate func() string) {
	it.newBatchID = generate
}
