package domain

// ShipmentAckStatus is the only signal consumed from the shipment subsystem.
type ShipmentAckStatus string

const (
	ShipmentAckPending      ShipmentAckStatus = "PENDING"
	ShipmentAckAcknowledged ShipmentAckStatus = "ACKNOWLEDGED"
	ShipmentAckCompleted    ShipmentAckStatus = "COMPLETED"
)
