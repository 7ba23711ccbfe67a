package task

type Option func(*Task)

func WithDescription(description string) Option {
	if description == "" {
		return nil
	}
	return func(t *Task) {
		t.Description = description
	}
}

func WithContent(content string) Option {
	if content == "" {
		return nil
	}
	return func(t *Task) {
		t.Content = content
	}
}

// WithPriority игнорирует нулевое значение, чтобы осталось DefaultPriority.
func WithPriority(priority int) Option {
	if priority == 0 {
		return nil
	}
	return func(t *Task) {
		t.Priority = priority
	}
}

func WithID(id int64) Option {
	return func(t *Task) {
		t.ID = id
	}
}
