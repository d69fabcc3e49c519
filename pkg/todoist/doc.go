// Package todoist is a thin client for the Todoist REST API. It covers the
// endpoints the publisher jobs need: creating, updating, closing and
// reopening tasks, and listing projects and sections.
package todoist
