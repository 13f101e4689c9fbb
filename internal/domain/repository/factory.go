package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Accounts() AccountRepository
	Withdrawals() WithdrawalRepository
	Transfers() TransferRepository
	Methods() MethodRepository
	Schedules() ScheduleRepository
	Revenue() RevenueRepository
}
