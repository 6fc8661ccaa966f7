package main

import (
	"context"

	"github.com/shandysiswandi/phoneauth/internal/app"
)

// @title           Phoneauth API
// @version         1.0
// @description     Phoneauth provides passwordless phone login with one-time codes, cookie sessions and phone number changes.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  CookieAuth
// @in cookie
// @name access_token
func main() {
	application := app.New()    // Initialize the application
	wait := application.Start() // Start the application and wait for the termination signal
	<-wait                      // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}
