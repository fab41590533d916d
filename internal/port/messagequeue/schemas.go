package messagequeue

// TaskEventPayload is the schema for tasks.events messages.
type TaskEventPayload struct {
	TaskID   string `json:"task_id"`
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Title    string `json:"title"`
	Action   string `json:"action"` // created | updated | deleted
}
