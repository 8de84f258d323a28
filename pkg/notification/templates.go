package notification

var newLocationCodeTemplate = NoticeTemplate{
	Subject: "New sign-in location detected",
	Text: "A sign-in to your CyberGuard account was attempted from a new location.\n\n" +
		"Your verification code is: {{.Code}}\n\n" +
		"The code expires in {{.ExpiresIn}} minutes. If this was not you, reset your password immediately.",
	Html: `<p>A sign-in to your CyberGuard account was attempted from a new location.</p>
<p>Your verification code is: <strong>{{.Code}}</strong></p>
<p>The code expires in {{.ExpiresIn}} minutes. If this was not you, reset your password immediately.</p>`,
}

var passwordResetCodeTemplate = NoticeTemplate{
	Subject: "Password reset code",
	Text: "A password reset was requested for your CyberGuard account.\n\n" +
		"Your reset code is: {{.Code}}\n\n" +
		"The code expires in {{.ExpiresIn}} minutes. If you did not request a reset, you can ignore this message.",
	Html: `<p>A password reset was requested for your CyberGuard account.</p>
<p>Your reset code is: <strong>{{.Code}}</strong></p>
<p>The code expires in {{.ExpiresIn}} minutes. If you did not request a reset, you can ignore this message.</p>`,
}
