// @title           moa API
// @version         1.0
// @description     API покупки товаров и услуг за мили программы лояльности (документация Swagger).
// @contact.name    Команда программы лояльности
// @host            localhost:4000
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import "moa_backend/internal/app"

func main() {
	app.Run()
}
