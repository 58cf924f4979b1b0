// cmd/main.go
package main

import (
	"go-employee-api/app"
)

// @title           Go-Employee API
// @version         1.0
// @description     Authentication backend for the employee API: registration, login, refresh token rotation and revocation.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
