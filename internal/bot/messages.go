package bot

const (
	msgUnknownCommand = "I don't know this command. " +
		"Try /publish or /yandex_disk_authorization."

	msgRequestPath = "Send me the absolute path of the file or folder " +
		"on your Yandex.Disk. For example: /folder/file.txt"

	msgNeedAuthorization = "You need to authorize Yandex.Disk access first. " +
		"Send /yandex_disk_authorization to start."

	msgRevoked = "Yandex.Disk access information was removed. " +
		"Note: the grant itself stays active on the Yandex side until it expires, " +
		"you can fully revoke it in your Yandex account settings."

	msgCancelled = "Sorry, something went wrong and the command was cancelled. " +
		"Please try again later."
)
