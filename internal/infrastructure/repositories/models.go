package repositories

// Models lists every table this service migrates
func Models() []interface{} {
	return []interface{}{
		&DBUser{},
		&DBNotification{},
		&DBOTPRecord{},
		&DBDeliveryLog{},
		&DBSubscription{},
		&DBSubscriptionPaymentLog{},
	}
}
