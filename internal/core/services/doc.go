// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters, stores).
//
// Services are pure Go with no CGO or provider dependencies.
package services
