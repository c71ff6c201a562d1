// Package command implements the command registry and dispatch pipeline
// and the per-verb handlers that mutate server state and emit replies.
//
// The registry/dispatch shape generalizes a fixed interface of named
// operations invoked off a shared struct, and a loop-and-dispatch
// structure, into a flat table of named entries looked up once per line,
// rather than a type hierarchy.
package command

// Numeric reply codes.
const (
	RPLWelcome  = 1
	RPLYourHost = 2
	RPLCreated  = 3
	RPLMyInfo   = 4
	RPLISupport = 5

	RPLAway = 301

	RPLWhoisUser     = 311
	RPLWhoisServer   = 312
	RPLWhoisOperator = 313
	RPLWhoisIdle     = 317
	RPLEndOfWhois    = 318
	RPLWhoisChannels = 319
	RPLWhoisHost     = 378

	RPLEndOfWho = 315
	RPLWhoReply = 352

	RPLTopic      = 332
	RPLTopicWhoTime = 333
	RPLNoTopic    = 331

	RPLNamReply  = 353
	RPLEndOfNames = 366

	RPLMotdStart = 375
	RPLMotd      = 372
	RPLEndOfMotd = 376

	RPLLUserClient   = 251
	RPLLUserOp       = 252
	RPLLUserChannels = 254
	RPLLUserMe       = 255

	RPLVersion = 351

	RPLAdminMe     = 256
	RPLAdminLoc1   = 257
	RPLAdminLoc2   = 258
	RPLAdminEmail  = 259

	RPLTime = 391

	RPLUserHost = 302
	RPLISON     = 303

	RPLInviting = 341

	RPLStatsCommands = 212
	RPLEndOfStats    = 219

	RPLYoureOper = 381
	RPLUModeIs   = 221

	ERRNoSuchNick    = 401
	ERRNoSuchChannel = 403
	ERRCannotSendToChan = 404
	ERRTooManyChannels  = 405
	ERRNoTextToSend     = 412
	ERRUnknownCommand   = 421
	ERRNoMotd           = 422
	ERRErroneousNickname = 432
	ERRNicknameInUse    = 433
	ERRNickCollision    = 436
	ERRUnavailResource  = 437
	ERRNotOnChannel     = 441
	ERRNotInChannel     = 442
	ERRUserOnChannel    = 443
	ERRNotRegistered    = 451
	ERRNeedMoreParams   = 461
	ERRAlreadyRegistered = 462
	ERRKeySet           = 467
	ERRChannelIsFull    = 471
	ERRInviteOnlyChan   = 473
	ERRBannedFromChan   = 474
	ERRBadChannelKey    = 475
	ERRRegOnlyChan      = 477
	ERRNoPrivileges     = 481
	ERRChanOpPrivsNeeded = 482
	ERRNoOperHost       = 491
)
