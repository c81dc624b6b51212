package dispatch

// Commands understood by the dispatcher.
const (
	CmdStart       = "/start"
	CmdHelp        = "/help"
	CmdNewPack     = "/new_pack"
	CmdAddToPack   = "/add_to_pack"
	CmdPublish     = "/publish"
	CmdAddKnownSet = "/add_sticker_pack"
)

const (
	MsgNoUser         = "cannot find user id (you shouldn't be here)"
	MsgUnauthorized   = "sorry bot is not working for you"
	MsgNotImage       = "it's not image"
	MsgUnsupported    = "something went wrong"
	MsgStickerDeleted = "sticker deleted"
	MsgDeleteFailed   = "cannot delete sticker"
	MsgCannotPublish  = "cannot publish yet"
	MsgPublishFailed  = "failed to publish: try again with /publish"
	MsgFetchFailed    = "There was an error fetching the content"
	MsgBadImage       = "cannot process image"
	MsgNotExpected    = "image not expected now"
	MsgInternal       = "internal error, try again later"
	MsgChoosePack     = "choose your pack"
	MsgPackAdded      = "added to user sticker packs %s"
	MsgPackNotFound   = "name not found"
	MsgInvalidName    = "invalid pack name, use latin letters, digits and single underscores"
	MsgNotEmoji       = "send emoji only"
	MsgHelp           = "/new_pack creates a new sticker pack\n" +
		"/add_to_pack adds a sticker to one of your packs\n" +
		"/add_sticker_pack <name> remembers a pack created earlier\n" +
		"/publish sends the sticker to Telegram"
)
