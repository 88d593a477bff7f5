package asana

// Asana wraps every response payload in a "data" envelope.

// User is an Asana user profile.
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Workspace is an Asana workspace or organization.
type Workspace struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// UserTaskList is the per-user, per-workspace "My Tasks" container.
type UserTaskList struct {
	GID   string `json:"gid"`
	Owner *User  `json:"owner"`
}

// Project carries the subset of project fields rendered in cards.
type Project struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// CustomField is a task custom field with its rendered value.
type CustomField struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	DisplayValue string `json:"display_value"`
}

// Task is a full task read used for notification rendering.
type Task struct {
	GID          string        `json:"gid"`
	Name         string        `json:"name"`
	Notes        string        `json:"notes"`
	DueOn        string        `json:"due_on"`
	PermalinkURL string        `json:"permalink_url"`
	Projects     []Project     `json:"projects"`
	CustomFields []CustomField `json:"custom_fields"`
	Followers    []User        `json:"followers"`
}

// TaskRef is a compact task reference from list endpoints.
type TaskRef struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Story is a task story; comment stories carry the comment body in Text.
type Story struct {
	GID  string `json:"gid"`
	Text string `json:"text"`
}

// Webhook is a webhook registration.
type Webhook struct {
	GID    string `json:"gid"`
	Active bool   `json:"active"`
}

// WebhookFilter narrows a webhook registration to specific event shapes.
type WebhookFilter struct {
	ResourceType    string   `json:"resource_type,omitempty"`
	ResourceSubtype string   `json:"resource_subtype,omitempty"`
	Action          string   `json:"action,omitempty"`
	Fields          []string `json:"fields,omitempty"`
}

// WorkspaceMembership links a user to a workspace; the full read resolves
// the user's personal task list.
type WorkspaceMembership struct {
	GID          string        `json:"gid"`
	User         *User         `json:"user"`
	UserTaskList *UserTaskList `json:"user_task_list"`
}

// EventRef identifies the actor or parent of an event.
type EventRef struct {
	GID          string `json:"gid"`
	ResourceType string `json:"resource_type"`
}

// EventResource identifies the resource an event describes.
type EventResource struct {
	GID             string `json:"gid"`
	ResourceType    string `json:"resource_type"`
	ResourceSubtype string `json:"resource_subtype"`
}

// EventChange describes a field-level change event.
type EventChange struct {
	Field  string `json:"field"`
	Action string `json:"action"`
}

// Event is one entry in a webhook delivery batch.
type Event struct {
	User     *EventRef     `json:"user"`
	Resource EventResource `json:"resource"`
	Parent   *EventRef     `json:"parent"`
	Action   string        `json:"action"`
	Change   *EventChange  `json:"change"`
}
