package i18n

var catalogs = map[string]map[string]string{
	English: {
		"app.name":              "W3 Lottery",
		"nav.home":              "Home",
		"nav.results":           "Results",
		"nav.buy":               "Buy Tickets",
		"nav.history":           "My Tickets",
		"nav.kyc":               "Verify Identity",
		"nav.admin":             "Manage",
		"nav.users":             "Users",
		"wallet.connect":        "Connect Wallet",
		"wallet.disconnect":     "Disconnect",
		"wallet.connected":      "Connected as {address}",
		"wallet.noProvider":     "No wallet found in this browser",
		"common.retry":          "Retry",
		"common.error":          "Something went wrong: {error}",
		"common.empty":          "Nothing here yet",
		"common.refresh":        "Refresh",
		"common.submit":         "Submit",
		"common.export":         "Export CSV",
		"common.prev":           "Previous",
		"common.next":           "Next",
		"common.page":           "Page {page} of {pages}",
		"access.walletRequired": "Please connect your wallet first",
		"access.kycRequired":    "Please complete identity verification first",
		"access.adminRequired":  "This page is for administrators only",
		"access.unauthorized":   "You do not have access to this page",
		"access.sessionExpired": "Your session expired. Please connect again",

		"home.title":         "Decentralized lottery on chain",
		"home.subtitle":      "Transparent draws, instant payouts, no middlemen.",
		"home.cta":           "Buy a ticket",
		"home.featured":      "Featured Lotteries",
		"home.prizePool":     "Total Prize Pool",
		"home.recentWinners": "Recent Winners",
		"home.howItWorks":    "How it works",
		"home.step.connect":  "Connect your wallet",
		"home.step.verify":   "Verify your identity",
		"home.step.pick":     "Pick your numbers",
		"home.step.win":      "Wait for the draw and collect",

		"lottery.price":    "Price",
		"lottery.supply":   "Supply",
		"lottery.issue":    "Issue",
		"lottery.pool":     "Prize pool",
		"lottery.saleEnds": "Sale ends",
		"lottery.drawTime": "Draw time",
		"lottery.noIssue":  "No issue on sale",
		"lottery.type":     "Type",
		"lottery.name":     "Name",
		"lottery.rules":    "Rules",
		"lottery.prizes":   "Prizes",
		"lottery.contract": "Contract",
		"lottery.status":   "Status",
		"lottery.numbers":  "Winning numbers",
		"winner.address":   "Winner",
		"winner.level":     "Level",
		"winner.amount":    "Prize",

		"results.title":     "Draw Results",
		"results.latest":    "Latest Results",
		"results.pastDraws": "Past Draws",
		"results.weekly":    "Weekly",
		"results.daily":     "Daily",
		"results.monthly":   "Monthly",
		"results.all":       "All types",

		"buy.title":     "Buy Tickets",
		"buy.pick":      "Pick {count} numbers from 1 to {range}",
		"buy.quickPick": "Quick Pick",
		"buy.clear":     "Clear",
		"buy.count":     "Tickets",
		"buy.total":     "Total",
		"buy.submit":    "Buy",
		"buy.success":   "Ticket purchased for issue {issue}",
		"buy.selected":  "Selected numbers",

		"history.title":  "My Tickets",
		"history.all":    "All",
		"history.active": "Active",
		"history.won":    "Won",
		"history.lost":   "Lost",
		"history.bet":    "Numbers",
		"history.amount": "Amount",
		"history.time":   "Purchased",
		"history.tx":     "Transaction",

		"kyc.title":          "Identity Verification",
		"kyc.name":           "Full name",
		"kyc.birthDate":      "Date of birth",
		"kyc.nationality":    "Nationality",
		"kyc.address":        "Residential address",
		"kyc.phone":          "Phone number",
		"kyc.email":          "Email",
		"kyc.documentType":   "Document type",
		"kyc.documentNumber": "Document number",
		"kyc.sourceOfFunds":  "Source of funds",
		"kyc.occupation":     "Occupation",
		"kyc.photo":          "ID photo (JPG/PNG, under 10MB)",
		"kyc.submitted":      "Your application was submitted and is awaiting review",
		"kyc.verified":       "Your identity is verified",
		"kyc.pending":        "Your application is under review",
		"kyc.submissionDate": "Submitted",

		"admin.title":         "Lottery Management",
		"admin.createType":    "Create Type",
		"admin.createLottery": "Create Lottery",
		"admin.createIssue":   "Create Issue",
		"admin.importIssues":  "Import Issues (CSV)",
		"admin.imported":      "Imported {created} issues, skipped {skipped}",
		"admin.draw":          "Draw",
		"admin.drawDone":      "Draw of issue {issue} finished with status {status}",
		"admin.issues":        "Issues",
		"admin.lotteries":     "Lotteries",
		"admin.types":         "Types",
		"admin.created":       "Created",
		"admin.users":         "Users",
		"admin.pending":       "Pending Verification",
		"admin.verified":      "Verified",
		"admin.unverified":    "Unverified",
		"admin.role":          "Role",
		"admin.registered":    "Registered",
		"admin.details":       "Details",
	},
	Chinese: {
		"app.name":              "W3 彩票",
		"nav.home":              "首页",
		"nav.results":           "开奖结果",
		"nav.buy":               "购买彩票",
		"nav.history":           "我的彩票",
		"nav.kyc":               "身份认证",
		"nav.admin":             "管理",
		"nav.users":             "用户",
		"wallet.connect":        "连接钱包",
		"wallet.disconnect":     "断开连接",
		"wallet.connected":      "已连接 {address}",
		"wallet.noProvider":     "浏览器中未找到钱包",
		"common.retry":          "重试",
		"common.error":          "出错了：{error}",
		"common.empty":          "暂无数据",
		"common.refresh":        "刷新",
		"common.submit":         "提交",
		"common.export":         "导出 CSV",
		"common.prev":           "上一页",
		"common.next":           "下一页",
		"common.page":           "第 {page} / {pages} 页",
		"access.walletRequired": "请先连接钱包",
		"access.kycRequired":    "请先完成身份认证",
		"access.adminRequired":  "此页面仅限管理员访问",
		"access.unauthorized":   "您无权访问此页面",
		"access.sessionExpired": "会话已过期，请重新连接",

		"home.title":         "链上去中心化彩票",
		"home.subtitle":      "公开透明的开奖，即时到账，无中间商。",
		"home.cta":           "立即购买",
		"home.featured":      "热门彩票",
		"home.prizePool":     "总奖池",
		"home.recentWinners": "最近中奖",
		"home.howItWorks":    "玩法说明",
		"home.step.connect":  "连接钱包",
		"home.step.verify":   "完成身份认证",
		"home.step.pick":     "选择号码",
		"home.step.win":      "等待开奖并领奖",

		"lottery.price":    "单价",
		"lottery.supply":   "发行量",
		"lottery.issue":    "期号",
		"lottery.pool":     "奖池",
		"lottery.saleEnds": "截止销售",
		"lottery.drawTime": "开奖时间",
		"lottery.noIssue":  "暂无在售期次",
		"lottery.type":     "类型",
		"lottery.name":     "名称",
		"lottery.rules":    "规则",
		"lottery.prizes":   "奖项",
		"lottery.contract": "合约",
		"lottery.status":   "状态",
		"lottery.numbers":  "中奖号码",
		"winner.address":   "中奖者",
		"winner.level":     "奖级",
		"winner.amount":    "奖金",

		"results.title":     "开奖结果",
		"results.latest":    "最新开奖",
		"results.pastDraws": "往期开奖",
		"results.weekly":    "周彩",
		"results.daily":     "日彩",
		"results.monthly":   "月彩",
		"results.all":       "全部类型",

		"buy.title":     "购买彩票",
		"buy.pick":      "从 1 到 {range} 中选择 {count} 个号码",
		"buy.quickPick": "机选",
		"buy.clear":     "清空",
		"buy.count":     "注数",
		"buy.total":     "合计",
		"buy.submit":    "购买",
		"buy.success":   "已购买第 {issue} 期彩票",
		"buy.selected":  "已选号码",

		"history.title":  "我的彩票",
		"history.all":    "全部",
		"history.active": "待开奖",
		"history.won":    "已中奖",
		"history.lost":   "未中奖",
		"history.bet":    "号码",
		"history.amount": "金额",
		"history.time":   "购买时间",
		"history.tx":     "交易",

		"kyc.title":          "身份认证",
		"kyc.name":           "姓名",
		"kyc.birthDate":      "出生日期",
		"kyc.nationality":    "国籍",
		"kyc.address":        "居住地址",
		"kyc.phone":          "电话号码",
		"kyc.email":          "邮箱",
		"kyc.documentType":   "证件类型",
		"kyc.documentNumber": "证件号码",
		"kyc.sourceOfFunds":  "资金来源",
		"kyc.occupation":     "职业",
		"kyc.photo":          "证件照片（JPG/PNG，小于 10MB）",
		"kyc.submitted":      "申请已提交，等待审核",
		"kyc.verified":       "您的身份已认证",
		"kyc.pending":        "您的申请正在审核中",
		"kyc.submissionDate": "提交时间",

		"admin.title":         "彩票管理",
		"admin.createType":    "创建类型",
		"admin.createLottery": "创建彩票",
		"admin.createIssue":   "创建期次",
		"admin.importIssues":  "导入期次（CSV）",
		"admin.imported":      "已导入 {created} 期，跳过 {skipped} 行",
		"admin.draw":          "开奖",
		"admin.drawDone":      "第 {issue} 期开奖完成，状态 {status}",
		"admin.issues":        "期次",
		"admin.lotteries":     "彩票",
		"admin.types":         "类型",
		"admin.created":       "创建成功",
		"admin.users":         "用户",
		"admin.pending":       "待审核",
		"admin.verified":      "已认证",
		"admin.unverified":    "未认证",
		"admin.role":          "角色",
		"admin.registered":    "注册时间",
		"admin.details":       "详情",
	},
}
