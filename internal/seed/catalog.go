package seed

type productSeed struct {
	Name        string
	Description string
	Price       int
	ImagePath   string
	Category    string
}

var catalog = []productSeed{
	{Name: "Arepa Reina Pepiada", Description: "Deliciosa arepa rellena con pollo desmenuzado, aguacate, mayonesa y cilantro. Un clásico venezolano que no puede faltar.", Price: 850, ImagePath: "/uploads/202510091237-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa Pabellón", Description: "Arepa rellena con carne mechada, caraotas negras, tajadas de plátano maduro y queso rallado. El sabor de Venezuela en cada bocado.", Price: 950, ImagePath: "/uploads/202510091240-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa Dominó", Description: "Arepa rellena con caraotas negras y queso blanco rallado. Simple, deliciosa y tradicional.", Price: 650, ImagePath: "/uploads/202510091241-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa Pelúa", Description: "Arepa con carne mechada y queso amarillo gratinado. Una combinación irresistible.", Price: 850, ImagePath: "/uploads/202510091242-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa de Pernil", Description: "Arepa rellena con jugoso pernil de cerdo marinado, acompañado de ensalada y salsas.", Price: 900, ImagePath: "/uploads/202510091243-foto.jpg", Category: "Especiales"},
	{Name: "Arepa Catira", Description: "Arepa con pollo desmenuzado y queso amarillo. Una combinación perfecta de sabores.", Price: 800, ImagePath: "/uploads/202510091244-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa de Camarones", Description: "Arepa gourmet rellena con camarones salteados en salsa de ajo y hierbas frescas.", Price: 1200, ImagePath: "/uploads/202510091245-foto.jpg", Category: "Gourmet"},
	{Name: "Arepa Vegetariana", Description: "Arepa rellena con vegetales asados, aguacate, queso y salsa de cilantro.", Price: 750, ImagePath: "/uploads/202510091246-foto.jpg", Category: "Vegetarianas"},
	{Name: "Arepa de Queso", Description: "Arepa sencilla rellena con abundante queso blanco. Perfecta para los amantes del queso.", Price: 550, ImagePath: "/uploads/202510091247-foto.jpg", Category: "Clásicas"},
	{Name: "Arepa Llanera", Description: "Arepa con carne asada, tomate, aguacate y queso. Sabor de los llanos venezolanos.", Price: 950, ImagePath: "/uploads/202510091248-foto.jpg", Category: "Especiales"},
	{Name: "Arepa de Perico", Description: "Arepa rellena con huevos revueltos con tomate y cebolla. Perfecta para el desayuno.", Price: 600, ImagePath: "/uploads/202510091249-foto.jpg", Category: "Desayuno"},
	{Name: "Arepa Sifrina", Description: "Arepa gourmet con pollo, aguacate, queso, tomate y mayonesa especial.", Price: 1000, ImagePath: "/uploads/202510091250-foto.jpg", Category: "Gourmet"},
}
