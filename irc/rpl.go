package irc

// IRC replies sent by Twitch.
const (
	rplWelcome  = "001" // <nick> :Welcome, GLHF!
	rplYourhost = "002" // <nick> :Your host is tmi.twitch.tv
	rplCreated  = "003" // <nick> :This server is rather new
	rplMyinfo   = "004" // <nick> :-

	rplNamreply   = "353" // <nick> = <channel> :<names>
	rplEndofnames = "366" // <nick> <channel> :End of /NAMES list
	rplMotd       = "372" // <nick> :You are in a maze of twisty passages...
	rplMotdstart  = "375" // <nick> :-
	rplEndofmotd  = "376" // <nick> :>

	errUnknowncommand = "421" // <nick> <command> :Unknown command
)

// Values of the msg-id tag of NOTICE messages.
const (
	NoticeAlreadyBanned        = "already_banned"
	NoticeAlreadyEmoteOnlyOff  = "already_emote_only_off"
	NoticeAlreadyEmoteOnlyOn   = "already_emote_only_on"
	NoticeAlreadyR9kOff        = "already_r9k_off"
	NoticeAlreadyR9kOn         = "already_r9k_on"
	NoticeAlreadySubsOff       = "already_subs_off"
	NoticeAlreadySubsOn        = "already_subs_on"
	NoticeBanSuccess           = "ban_success"
	NoticeColorChanged         = "color_changed"
	NoticeCommercialSuccess    = "commercial_success"
	NoticeDeleteMessageSuccess = "delete_message_success"
	NoticeEmoteOnlyOff         = "emote_only_off"
	NoticeEmoteOnlyOn          = "emote_only_on"
	NoticeFollowersOff         = "followers_off"
	NoticeFollowersOn          = "followers_on"
	NoticeFollowersOnZero      = "followers_on_zero"
	NoticeHostOff              = "host_off"
	NoticeHostOn               = "host_on"
	NoticeHostTargetOffline    = "host_target_went_offline"
	NoticeHostsRemaining       = "hosts_remaining"
	NoticeModSuccess           = "mod_success"
	NoticeNoMods               = "no_mods"
	NoticeNoVIPs               = "no_vips"
	NoticeNotHosting           = "not_hosting"
	NoticeR9kOff               = "r9k_off"
	NoticeR9kOn                = "r9k_on"
	NoticeRoomMods             = "room_mods"
	NoticeSlowOff              = "slow_off"
	NoticeSlowOn               = "slow_on"
	NoticeSubsOff              = "subs_off"
	NoticeSubsOn               = "subs_on"
	NoticeTimeoutSuccess       = "timeout_success"
	NoticeUnbanSuccess         = "unban_success"
	NoticeUnmodSuccess         = "unmod_success"
	NoticeUntimeoutSuccess     = "untimeout_success"
	NoticeVIPsSuccess          = "vips_success"
)

// Values of the msg-id tag of USERNOTICE messages.
const (
	UserNoticeSub            = "sub"
	UserNoticeResub          = "resub"
	UserNoticeSubGift        = "subgift"
	UserNoticeAnonSubGift    = "anonsubgift"
	UserNoticeSubMysteryGift = "submysterygift"
	UserNoticeRaid           = "raid"
)

// loginFailures are the NOTICE texts Twitch sends when logon fails.
var loginFailures = []string{
	"Login unsuccessful",
	"Login authentication failed",
	"Error logging in",
	"Improperly formatted auth",
	"Invalid NICK",
}
