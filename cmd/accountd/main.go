// @title           Account Service API
// @version         1.0
// @description     User registration, token authentication and account administration.
// @BasePath        /api
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import "github.com/99minutos/account-system/internal/cli"

func main() {
	cli.Execute()
}
