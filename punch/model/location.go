package model

// WarehouseLocation maps a location external id onto the warehouse that
// receives its punches.
type WarehouseLocation struct {
	LocationID  int    `gorm:"primaryKey;autoIncrement:false;column:location_id" json:"locationId"`
	WarehouseID string `gorm:"column:warehouse_id;type:varchar(32);not null" json:"warehouseId"`
	TimeZone    string `gorm:"column:time_zone;type:varchar(64)" json:"timeZone"`
}

func (WarehouseLocation) TableName() string {
	return "warehouse_location"
}
