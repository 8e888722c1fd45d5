// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

// ResourceCourses is the resource name the admin console uses for courses.
// It shows up in routes, in the backing document and in Content-Range.
const ResourceCourses = "courses"

// User is a person enrolled in a course, identified by their CWL login.
type User struct {
	ID   string `json:"id" validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=200"`
}

// Course is one administrative entry of the console: an id, a display name
// and the users attached to it.
type Course struct {
	ID         string `json:"id" validate:"max=64"`
	CourseName string `json:"course_name" validate:"required,max=200"`
	Users      []User `json:"users" validate:"dive"`
}

// Clone returns a deep copy so stores never hand out their internal slices.
func (c Course) Clone() Course {
	out := c
	if c.Users != nil {
		out.Users = make([]User, len(c.Users))
		copy(out.Users, c.Users)
	}
	return out
}

// ImportSummary reports what a bulk import did.
type ImportSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
