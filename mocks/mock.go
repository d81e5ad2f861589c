package mocks

// Common utils and helpers can go here

// NOTE: mocks maintained by hand in the style of https://github.com/vektra/mockery
