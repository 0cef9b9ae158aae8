package config

const (
	// TopicClassifyTask is the NSQ topic carrying dispatch messages to the
	// classification workers.
	TopicClassifyTask = "classify.task"

	// TopicClassifyResult is the NSQ topic workers publish to after writing
	// a result object, used to wake waiting submissions early.
	TopicClassifyResult = "classify.result"
)
