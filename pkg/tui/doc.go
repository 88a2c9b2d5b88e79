// Package tui renders the login and signup forms as bubbletea programs.
//
// Tab and shift+tab move between fields, enter on the last field submits, and
// esc quits. While a submission is running the submit key does nothing.
package tui
